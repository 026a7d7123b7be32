package model

import (
	"time"
)

// Donation 捐款记录，一旦入库不可修改
type Donation struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	DonorID   string    `json:"donor_id" gorm:"not null;index"`
	Amount    float64   `json:"amount" gorm:"not null"`
	Currency  string    `json:"currency" gorm:"not null;default:'USDC'"`
	TxRef     string    `json:"tx_ref" gorm:"uniqueIndex"` // 来源交易引用
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
	ProjectID string    `json:"project_id" gorm:"not null;index"`

	// 关联
	Project Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}
