package workflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/model"
	"gorm.io/gorm"
)

// 人工确认升级时允许的处理方式
const (
	ResolutionResume  = "resume"  // 注入修正输入后恢复自动推进
	ResolutionAbandon = "abandon" // 放弃该实例
)

// Status 实例状态与完整审计历史
type Status struct {
	Instance model.WorkflowInstance `json:"instance"`
	History  []model.AuditEntry     `json:"history"`
}

// GetStatus 查询实例状态与历史
func (e *Engine) GetStatus(instanceID string) (*Status, error) {
	inst, err := e.getInstance(instanceID)
	if err != nil {
		return nil, err
	}
	history, err := e.auditStore.ListByInstance(instanceID)
	if err != nil {
		return nil, err
	}
	return &Status{Instance: *inst, History: history}, nil
}

// ListEscalations 列出等待人工处理的升级实例
func (e *Engine) ListEscalations() ([]model.WorkflowInstance, error) {
	var instances []model.WorkflowInstance
	err := e.db.Where("state = ? AND resolution = ?", string(model.StateEscalated), "").
		Order("updated_at ASC").Find(&instances).Error
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// handleCancelRequested 操作员取消非终态实例；
// 已提交的副作用（已完成的放款）不会被回滚
func (e *Engine) handleCancelRequested(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	lock := e.lockFor("instance:" + ev.InstanceID)
	lock.Lock()
	defer lock.Unlock()

	inst, err := e.getInstance(ev.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		return inst, &capability.ValidationError{Field: "instance_id", Reason: "实例已到终态，无法取消"}
	}
	if inst.State == string(model.StateEscalated) {
		return inst, &capability.ValidationError{Field: "instance_id", Reason: "实例已处于升级状态"}
	}

	inst.LastError = "cancelled by operator"
	inst.EscalatedFrom = inst.State
	inst.State = string(model.StateEscalated)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"state":          inst.State,
			"last_error":     inst.LastError,
			"escalated_from": inst.EscalatedFrom,
		}
		if err := tx.Model(&model.WorkflowInstance{}).Where("id = ?", inst.ID).Updates(updates).Error; err != nil {
			return err
		}
		return e.auditStore.AppendTx(tx, inst.ID, actorOperator, string(model.StateEscalated), ev, "cancelled by operator")
	})
	if err != nil {
		return inst, err
	}

	logger.Info("Instance %s cancelled by operator", inst.ID)
	return inst, nil
}

// handleEscalationAck 人工确认升级：恢复或放弃，两者都不会自动发生
func (e *Engine) handleEscalationAck(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	lock := e.lockFor("instance:" + ev.InstanceID)
	lock.Lock()
	defer lock.Unlock()

	inst, err := e.getInstance(ev.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst.State != string(model.StateEscalated) {
		return inst, &ConsistencyError{InstanceID: inst.ID, State: inst.State, Event: string(ev.Kind)}
	}
	if inst.Resolution != "" {
		return inst, &capability.ValidationError{Field: "instance_id", Reason: "升级已被确认"}
	}

	switch ev.Resolution {
	case ResolutionAbandon:
		err = e.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.WorkflowInstance{}).Where("id = ?", inst.ID).
				Update("resolution", ResolutionAbandon).Error; err != nil {
				return err
			}
			return e.auditStore.AppendTx(tx, inst.ID, actorOperator, "escalation_ack", ev, "abandoned by operator")
		})
		if err != nil {
			return inst, err
		}
		inst.Resolution = ResolutionAbandon
		logger.Info("Instance %s abandoned by operator", inst.ID)
		return inst, nil

	case ResolutionResume:
		resumeState := inst.EscalatedFrom
		if resumeState == "" {
			return inst, &capability.ValidationError{Field: "instance_id", Reason: "缺少升级来源状态，无法恢复"}
		}
		err = e.db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]interface{}{
				"state":       resumeState,
				"last_error":  "",
				"retry_count": 0,
			}
			if err := tx.Model(&model.WorkflowInstance{}).Where("id = ?", inst.ID).Updates(updates).Error; err != nil {
				return err
			}
			return e.auditStore.AppendTx(tx, inst.ID, actorOperator, "escalation_ack", ev, "resumed by operator")
		})
		if err != nil {
			return inst, err
		}
		inst.State = resumeState
		inst.LastError = ""
		inst.RetryCount = 0
		logger.Info("Instance %s resumed by operator at state %s", inst.ID, resumeState)
		return inst, e.continueFrom(ctx, inst)

	default:
		return inst, &capability.ValidationError{Field: "resolution", Reason: "处理方式必须是 resume 或 abandon"}
	}
}

// continueFrom 恢复后从当前状态继续自动推进；
// 等待外部输入的状态保持原地等待
func (e *Engine) continueFrom(ctx context.Context, inst *model.WorkflowInstance) error {
	switch model.WorkflowState(inst.State) {
	case model.StateDetected:
		var donation model.Donation
		if err := e.db.First(&donation, "id = ?", inst.DonationID).Error; err != nil {
			return err
		}
		var project model.Project
		if err := e.db.First(&project, "id = ?", inst.ProjectID).Error; err != nil {
			return err
		}
		return e.runForecast(ctx, inst, &donation, &project)
	case model.StateMilestoneSubmitted:
		milestone, err := e.milestoneLogic.GetMilestone(inst.MilestoneID)
		if err != nil {
			return err
		}
		var proofRefs []string
		if err := json.Unmarshal([]byte(milestone.ProofRefs), &proofRefs); err != nil {
			return err
		}
		return e.runVerification(ctx, inst, milestone, proofRefs)
	case model.StateVerified, model.StateDisbursing:
		return e.proceedDisbursement(ctx, inst)
	case model.StateDisbursed:
		var donation model.Donation
		if err := e.db.First(&donation, "id = ?", inst.DonationID).Error; err != nil {
			return err
		}
		return e.generateReport(ctx, inst, &donation)
	case model.StateReportGenerated:
		return e.transition(inst, model.StateClosed, actorOperator, nil, "workflow closed")
	default:
		return nil
	}
}

// Reconciliation 对账结果：已提交放款数必须等于 disbursed 审计记录数
type Reconciliation struct {
	CommittedDisbursements int64 `json:"committed_disbursements"`
	DisbursedAuditEntries  int64 `json:"disbursed_audit_entries"`
	Consistent             bool  `json:"consistent"`
}

// Reconcile 以审计日志为对账基准核对放款
func (e *Engine) Reconcile() (*Reconciliation, error) {
	var committed int64
	if err := e.db.Model(&model.DisbursementRecord{}).
		Where("status = ?", string(model.DisbursementStatusCommitted)).
		Count(&committed).Error; err != nil {
		return nil, err
	}
	audited, err := e.auditStore.CountByAction(string(model.StateDisbursed))
	if err != nil {
		return nil, err
	}
	return &Reconciliation{
		CommittedDisbursements: committed,
		DisbursedAuditEntries:  audited,
		Consistent:             committed == audited,
	}, nil
}

// getInstance 按ID取实例
func (e *Engine) getInstance(instanceID string) (*model.WorkflowInstance, error) {
	var inst model.WorkflowInstance
	if err := e.db.First(&inst, "id = ?", instanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("工作流实例不存在")
		}
		return nil, err
	}
	return &inst, nil
}
