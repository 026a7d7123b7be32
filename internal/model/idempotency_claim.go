package model

import (
	"time"
)

// IdempotencyClaim 幂等声明，键为里程碑ID；
// 插入成功即获得执行放款副作用的独占权
type IdempotencyClaim struct {
	Key        string    `json:"key" gorm:"primaryKey"`
	InstanceID string    `json:"instance_id" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}
