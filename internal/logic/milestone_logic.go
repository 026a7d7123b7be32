package logic

import (
	"encoding/json"
	"errors"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/model"
	"gorm.io/gorm"
)

// MilestoneLogic 里程碑业务逻辑
type MilestoneLogic struct {
	db *gorm.DB
}

// NewMilestoneLogic 创建里程碑业务逻辑
func NewMilestoneLogic(db *gorm.DB) *MilestoneLogic {
	return &MilestoneLogic{db: db}
}

// SubmitProof 提交里程碑证明。
// 已到终态的里程碑不可重新提交，必须创建新的里程碑记录
func (m *MilestoneLogic) SubmitProof(milestoneID, projectID string, proofRefs []string) (*model.Milestone, error) {
	if milestoneID == "" {
		return nil, &capability.ValidationError{Field: "milestone_id", Reason: "里程碑ID不能为空"}
	}
	if len(proofRefs) == 0 {
		return nil, &capability.ValidationError{Field: "proof_refs", Reason: "证明材料不能为空"}
	}

	refs, err := json.Marshal(proofRefs)
	if err != nil {
		return nil, err
	}

	var milestone model.Milestone
	err = m.db.First(&milestone, "id = ?", milestoneID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if projectID == "" {
			return nil, &capability.ValidationError{Field: "project_id", Reason: "新里程碑必须指定项目ID"}
		}
		var seq int64
		m.db.Model(&model.Milestone{}).Where("project_id = ?", projectID).Count(&seq)
		milestone = model.Milestone{
			ID:        milestoneID,
			ProjectID: projectID,
			Seq:       int(seq) + 1,
			Status:    string(model.MilestoneStatusSubmitted),
			ProofRefs: string(refs),
		}
		if err := m.db.Create(&milestone).Error; err != nil {
			return nil, err
		}
		return &milestone, nil
	case err != nil:
		return nil, err
	}

	if milestone.IsTerminal() {
		return nil, &capability.ValidationError{Field: "milestone_id", Reason: "里程碑已到终态，重新提交需使用新的里程碑ID"}
	}

	updates := map[string]interface{}{
		"status":     string(model.MilestoneStatusSubmitted),
		"proof_refs": string(refs),
	}
	if err := m.db.Model(&milestone).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

// MarkVerified 标记里程碑验证通过
func (m *MilestoneLogic) MarkVerified(milestoneID, comments string) error {
	return m.markOutcome(milestoneID, model.MilestoneStatusVerified, comments)
}

// MarkRejected 标记里程碑被拒绝，保留验证意见
func (m *MilestoneLogic) MarkRejected(milestoneID, comments string) error {
	return m.markOutcome(milestoneID, model.MilestoneStatusRejected, comments)
}

// markOutcome 写入验证结果；终态不可再变更
func (m *MilestoneLogic) markOutcome(milestoneID string, status model.MilestoneStatus, comments string) error {
	var milestone model.Milestone
	if err := m.db.First(&milestone, "id = ?", milestoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("里程碑不存在")
		}
		return err
	}
	if milestone.IsTerminal() {
		return errors.New("里程碑已到终态")
	}

	updates := map[string]interface{}{
		"status":   string(status),
		"comments": comments,
	}
	return m.db.Model(&milestone).Updates(updates).Error
}

// GetMilestone 获取里程碑
func (m *MilestoneLogic) GetMilestone(milestoneID string) (*model.Milestone, error) {
	var milestone model.Milestone
	if err := m.db.First(&milestone, "id = ?", milestoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("里程碑不存在")
		}
		return nil, err
	}
	return &milestone, nil
}

// CompletedMilestoneIDs 项目下全部已验证通过的里程碑ID
func (m *MilestoneLogic) CompletedMilestoneIDs(projectID string) ([]string, error) {
	var ids []string
	if err := m.db.Model(&model.Milestone{}).
		Where("project_id = ? AND status = ?", projectID, string(model.MilestoneStatusVerified)).
		Order("seq ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
