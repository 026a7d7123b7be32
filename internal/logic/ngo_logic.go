package logic

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NGOLogic NGO名录业务逻辑；
// 对单个NGO的写操作按ID串行化
type NGOLogic struct {
	db         *gorm.DB
	auditStore *audit.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewNGOLogic 创建NGO名录业务逻辑
func NewNGOLogic(db *gorm.DB, auditStore *audit.Store) *NGOLogic {
	return &NGOLogic{
		db:         db,
		auditStore: auditStore,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockFor 取指定NGO的写锁
func (n *NGOLogic) lockFor(ngoID string) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()
	if l, ok := n.locks[ngoID]; ok {
		return l
	}
	l := &sync.Mutex{}
	n.locks[ngoID] = l
	return l
}

// AdmitCandidates 处理检索周期返回的候选NGO；
// 信任分严格大于阈值才准入，否则直接丢弃，不存在部分准入
func (n *NGOLogic) AdmitCandidates(candidates []capability.Candidate, threshold float64) ([]model.NGORecord, error) {
	var admitted []model.NGORecord
	for _, c := range candidates {
		if c.TrustScore <= threshold {
			logger.Info("Discarding NGO candidate %s with trust score %.1f", c.Name, c.TrustScore)
			if err := n.auditStore.Append("ngo:"+c.Name, "researcher", "ngo_discarded", c, "trust score below threshold"); err != nil {
				return admitted, err
			}
			continue
		}

		record := model.NGORecord{
			ID:         uuid.New().String(),
			Name:       c.Name,
			Country:    c.Country,
			Wallet:     c.Wallet,
			TrustScore: c.TrustScore,
			Status:     string(model.NGOStatusActive),
		}
		if err := n.db.Create(&record).Error; err != nil {
			logger.Error("Failed to admit NGO %s: %v", c.Name, err)
			continue
		}
		if err := n.auditStore.Append("ngo:"+record.ID, "researcher", "ngo_admitted", c, "admitted to active"); err != nil {
			return admitted, err
		}
		admitted = append(admitted, record)
	}
	return admitted, nil
}

// Flag 将NGO标记为flagged并记录证据来源；只打标记，不删除记录
func (n *NGOLogic) Flag(ngoID string, sources []string) error {
	lock := n.lockFor(ngoID)
	lock.Lock()
	defer lock.Unlock()

	var record model.NGORecord
	if err := n.db.First(&record, "id = ?", ngoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("NGO不存在")
		}
		return err
	}

	evidence, err := json.Marshal(sources)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":       string(model.NGOStatusFlagged),
		"flag_sources": string(evidence),
	}
	if err := n.db.Model(&record).Updates(updates).Error; err != nil {
		return err
	}

	logger.Warn("NGO %s flagged with %d corroborating sources", record.Name, len(sources))
	return n.auditStore.Append("ngo:"+ngoID, "monitor", "ngo_flagged", sources, "flagged, disbursement blocked")
}

// IsFlagged NGO当前是否处于flagged状态
func (n *NGOLogic) IsFlagged(ngoID string) (bool, error) {
	var record model.NGORecord
	if err := n.db.First(&record, "id = ?", ngoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.New("NGO不存在")
		}
		return false, err
	}
	return record.Status == string(model.NGOStatusFlagged), nil
}

// GetNGO 获取NGO档案
func (n *NGOLogic) GetNGO(ngoID string) (*model.NGORecord, error) {
	var record model.NGORecord
	if err := n.db.First(&record, "id = ?", ngoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("NGO不存在")
		}
		return nil, err
	}
	return &record, nil
}

// ListNGOs 获取NGO名录，可按状态过滤
func (n *NGOLogic) ListNGOs(status string) ([]model.NGORecord, error) {
	var records []model.NGORecord
	query := n.db.Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListActive 获取全部已准入NGO，供监控周期遍历
func (n *NGOLogic) ListActive() ([]model.NGORecord, error) {
	return n.ListNGOs(string(model.NGOStatusActive))
}
