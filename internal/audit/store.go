package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blues/cps/internal/model"
	"gorm.io/gorm"
)

// Store 审计日志存储，只追加；
// 追加失败视为所在操作未完成
type Store struct {
	db *gorm.DB
}

// NewStore 创建审计日志存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append 追加一条审计记录
func (s *Store) Append(instanceID, actor, action string, input interface{}, outcome string) error {
	return s.AppendTx(s.db, instanceID, actor, action, input, outcome)
}

// AppendTx 在指定事务内追加审计记录，保证与状态变更一起提交
func (s *Store) AppendTx(tx *gorm.DB, instanceID, actor, action string, input interface{}, outcome string) error {
	entry := model.AuditEntry{
		Timestamp:   time.Now().UTC(),
		InstanceID:  instanceID,
		Actor:       actor,
		Action:      action,
		InputDigest: Digest(input),
		Outcome:     outcome,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

// ListByInstance 按实例查询审计历史，按时间升序
func (s *Store) ListByInstance(instanceID string) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	if err := s.db.Where("instance_id = ?", instanceID).
		Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasAction 实例是否已记录过指定动作
func (s *Store) HasAction(instanceID, action string) (bool, error) {
	var count int64
	if err := s.db.Model(&model.AuditEntry{}).
		Where("instance_id = ? AND action = ?", instanceID, action).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByAction 统计指定动作的审计记录数，用于对账
func (s *Store) CountByAction(action string) (int64, error) {
	var count int64
	if err := s.db.Model(&model.AuditEntry{}).
		Where("action = ?", action).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Digest 计算输入内容的SHA-256摘要
func Digest(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
