package model

import (
	"time"
)

// DisbursementRecord 放款记录，里程碑ID为唯一键；
// 每个里程碑至多存在一条 committed 记录，这是系统的核心不变量
type DisbursementRecord struct {
	MilestoneID string    `json:"milestone_id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ProjectID string  `json:"project_id" gorm:"not null;index"`
	Wallet    string  `json:"wallet" gorm:"not null"` // 收款钱包地址
	Amount    float64 `json:"amount" gorm:"not null"`
	TxRef     string  `json:"tx_ref"`                          // 服务商交易引用
	Status    string  `json:"status" gorm:"default:'pending'"` // pending, committed, failed
}

// DisbursementStatus 放款状态
type DisbursementStatus string

const (
	DisbursementStatusPending   DisbursementStatus = "pending"   // 处理中
	DisbursementStatusCommitted DisbursementStatus = "committed" // 已放款
	DisbursementStatusFailed    DisbursementStatus = "failed"    // 失败
)
