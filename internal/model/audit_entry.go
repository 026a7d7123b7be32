package model

import (
	"time"
)

// AuditEntry 审计日志，只追加，从不修改或删除
type AuditEntry struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index"`
	InstanceID  string    `json:"instance_id" gorm:"not null;index"`
	Actor       string    `json:"actor" gorm:"not null"`  // 触发方：coordinator, operator, monitor, researcher
	Action      string    `json:"action" gorm:"not null"` // 动作或状态转移
	InputDigest string    `json:"input_digest"`           // 输入内容的SHA-256摘要
	Outcome     string    `json:"outcome" gorm:"type:text"`
}
