package model

import (
	"time"
)

// ImpactReport 捐款人影响力报告，仅在放款 committed 之后生成
type ImpactReport struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DonorID     string    `json:"donor_id" gorm:"not null;index"`
	ProjectID   string    `json:"project_id" gorm:"not null;index"`
	Amount      float64   `json:"amount" gorm:"not null"`
	Milestones  string    `json:"milestones" gorm:"type:text"` // JSON数组，已完成里程碑ID
	Narrative   string    `json:"narrative" gorm:"type:text"`  // 成果叙述
	GeneratedAt time.Time `json:"generated_at" gorm:"not null"`
}
