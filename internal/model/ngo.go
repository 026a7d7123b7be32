package model

import (
	"time"
)

// NGORecord NGO档案，监控发现问题时只打标记，不删除记录
type NGORecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string  `json:"name" gorm:"not null;uniqueIndex"`
	Country     string  `json:"country"`
	Wallet      string  `json:"wallet" gorm:"not null"`
	TrustScore  float64 `json:"trust_score"`
	Status      string  `json:"status" gorm:"default:'candidate'"` // candidate, active, flagged
	FlagSources string  `json:"flag_sources" gorm:"type:text"`     // JSON数组，触发标记的证据来源
}

// NGOStatus NGO状态
type NGOStatus string

const (
	NGOStatusCandidate NGOStatus = "candidate" // 候选
	NGOStatusActive    NGOStatus = "active"    // 已准入
	NGOStatusFlagged   NGOStatus = "flagged"   // 已标记，禁止放款
)
