package idempotency

import (
	"fmt"
	"time"

	"github.com/blues/cps/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimResult 声明结果
type ClaimResult int

const (
	Acquired       ClaimResult = iota // 本次获得执行权
	AlreadyClaimed                    // 执行权已被占用，副作用已执行过
)

// Store 幂等声明存储，按键做原子抢占；
// 同一个键只会有一次 Acquired
type Store struct {
	db *gorm.DB
}

// NewStore 创建幂等声明存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Claim 尝试声明指定键的执行权。
// AlreadyClaimed 不是错误，表示副作用已执行，调用方应读取既有结果而不是重试
func (s *Store) Claim(key, instanceID string) (ClaimResult, error) {
	claim := model.IdempotencyClaim{
		Key:        key,
		InstanceID: instanceID,
		CreatedAt:  time.Now().UTC(),
	}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
	if res.Error != nil {
		return AlreadyClaimed, fmt.Errorf("idempotency claim %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return AlreadyClaimed, nil
	}
	return Acquired, nil
}

// Holder 返回持有指定键的实例ID，不存在时返回空串
func (s *Store) Holder(key string) (string, error) {
	var claim model.IdempotencyClaim
	err := s.db.First(&claim, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return claim.InstanceID, nil
}
