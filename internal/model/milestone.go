package model

import (
	"time"
)

// Milestone 项目里程碑，验证通过或被拒绝后即为终态；
// 重新提交必须创建新的里程碑记录，状态不会回退
type Milestone struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID string `json:"project_id" gorm:"not null;index"`
	Seq       int    `json:"seq" gorm:"not null"`
	Status    string `json:"status" gorm:"default:'pending'"` // pending, submitted, verified, rejected
	ProofRefs string `json:"proof_refs" gorm:"type:text"`     // JSON数组，证明材料引用
	Comments  string `json:"comments" gorm:"type:text"`       // 验证意见

	// 关联
	Project Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

// MilestoneStatus 里程碑状态
type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"   // 待提交
	MilestoneStatusSubmitted MilestoneStatus = "submitted" // 已提交待验证
	MilestoneStatusVerified  MilestoneStatus = "verified"  // 验证通过
	MilestoneStatusRejected  MilestoneStatus = "rejected"  // 已拒绝
)

// IsTerminal 里程碑是否已到终态
func (m *Milestone) IsTerminal() bool {
	return m.Status == string(MilestoneStatusVerified) || m.Status == string(MilestoneStatusRejected)
}
