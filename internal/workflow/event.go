package workflow

import (
	"github.com/blues/cps/internal/model"
)

// EventKind 事件类型；
// 每种事件对应唯一的处理器和能力依赖，见 NewEngine 中的映射表
type EventKind string

const (
	EventDonationDetected EventKind = "donation_detected" // 检测到新捐款
	EventProofSubmitted   EventKind = "proof_submitted"   // NGO提交里程碑证明
	EventVerifiedNotice   EventKind = "verified_notice"   // 外部重复投递的验证通过通知
	EventCancelRequested  EventKind = "cancel_requested"  // 操作员取消实例
	EventEscalationAck    EventKind = "escalation_ack"    // 操作员确认升级
)

// Event 工作流事件
type Event struct {
	Kind EventKind

	Donation    *model.Donation // donation_detected
	MilestoneID string          // proof_submitted, verified_notice
	ProjectID   string          // proof_submitted
	ProofRefs   []string        // proof_submitted
	InstanceID  string          // cancel_requested, escalation_ack
	Resolution  string          // escalation_ack: resume, abandon
}
