package model

import (
	"time"
)

// WorkflowInstance 工作流实例，由协调器独占持有；
// 每笔在途捐款或里程碑生命周期对应一个实例
type WorkflowInstance struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DonationID    string `json:"donation_id" gorm:"index"`
	MilestoneID   string `json:"milestone_id" gorm:"index"`
	ProjectID     string `json:"project_id" gorm:"not null;index"`
	State         string `json:"state" gorm:"not null;default:'detected'"`
	RetryCount    int    `json:"retry_count" gorm:"default:0"` // 当前阶段已重试次数
	LastError     string `json:"last_error" gorm:"type:text"`
	EscalatedFrom string `json:"escalated_from"` // 升级前所处状态，人工恢复时回到该状态
	Resolution    string `json:"resolution"`     // 升级后的人工处理结果: resume, abandon
}

// WorkflowState 工作流状态
type WorkflowState string

const (
	StateDetected               WorkflowState = "detected"                 // 捐款已检测
	StateNeedsPredicted         WorkflowState = "needs_predicted"          // 需求预测完成
	StateAwaitingMilestoneProof WorkflowState = "awaiting_milestone_proof" // 等待里程碑证明
	StateMilestoneSubmitted     WorkflowState = "milestone_submitted"      // 证明已提交
	StateVerified               WorkflowState = "verified"                 // 验证通过
	StateRejected               WorkflowState = "rejected"                 // 验证拒绝，终态
	StateDisbursing             WorkflowState = "disbursing"               // 放款中
	StateDisbursed              WorkflowState = "disbursed"                // 已放款
	StateReportGenerated        WorkflowState = "report_generated"         // 报告已生成
	StateClosed                 WorkflowState = "closed"                   // 已关闭，终态
	StateEscalated              WorkflowState = "escalated"                // 已升级，等待人工处理
)

// IsTerminal 实例是否到达终态
func (w *WorkflowInstance) IsTerminal() bool {
	switch WorkflowState(w.State) {
	case StateRejected, StateClosed:
		return true
	case StateEscalated:
		return w.Resolution != ""
	}
	return false
}
