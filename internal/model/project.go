package model

import (
	"time"
)

// Project 公益项目
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	NGOID string `json:"ngo_id" gorm:"not null;index"`
	Name  string `json:"name" gorm:"not null"`

	// 需求预测结果，由预测能力回填
	PredictedAmount   float64 `json:"predicted_amount"`
	PredictedTimeline string  `json:"predicted_timeline"`
	Confidence        float64 `json:"confidence"`

	// 关联，里程碑按序号排列
	NGO        NGORecord   `json:"ngo,omitempty" gorm:"foreignKey:NGOID"`
	Milestones []Milestone `json:"milestones,omitempty" gorm:"foreignKey:ProjectID"`
}
