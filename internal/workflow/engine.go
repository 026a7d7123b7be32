package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/idempotency"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

const (
	actorCoordinator = "coordinator"
	actorOperator    = "operator"
)

// Providers 协调器依赖的能力适配器
type Providers struct {
	Forecast capability.ForecastProvider
	Verify   capability.VerificationProvider
	Disburse capability.DisbursementProvider
	Report   capability.ReportProvider
}

// Engine 工作流协调器。
// 每个实例是独立的并发执行单元，彼此只通过幂等声明、
// 审计日志和NGO名录交互，绝不共享内存状态
type Engine struct {
	db         *gorm.DB
	auditStore *audit.Store
	claims     *idempotency.Store
	providers  Providers
	policy     *Policy

	ngoLogic       *logic.NGOLogic
	donationLogic  *logic.DonationLogic
	milestoneLogic *logic.MilestoneLogic
	reportLogic    *logic.ReportLogic

	pool     *ants.Pool
	handlers map[EventKind]func(ctx context.Context, ev Event) (*model.WorkflowInstance, error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine 创建工作流协调器
func NewEngine(db *gorm.DB, providers Providers, policy *Policy, ngoLogic *logic.NGOLogic) (*Engine, error) {
	pool, err := ants.NewPool(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	e := &Engine{
		db:             db,
		auditStore:     audit.NewStore(db),
		claims:         idempotency.NewStore(db),
		providers:      providers,
		policy:         policy,
		ngoLogic:       ngoLogic,
		donationLogic:  logic.NewDonationLogic(db),
		milestoneLogic: logic.NewMilestoneLogic(db),
		reportLogic:    logic.NewReportLogic(db),
		pool:           pool,
		locks:          make(map[string]*sync.Mutex),
	}

	// 事件类型到处理器的映射表，每个处理器的能力依赖是显式的
	e.handlers = map[EventKind]func(ctx context.Context, ev Event) (*model.WorkflowInstance, error){
		EventDonationDetected: e.handleDonationDetected, // forecast
		EventProofSubmitted:   e.handleProofSubmitted,   // verify, disburse, report
		EventVerifiedNotice:   e.handleVerifiedNotice,   // disburse, report
		EventCancelRequested:  e.handleCancelRequested,  // 无能力依赖
		EventEscalationAck:    e.handleEscalationAck,    // 恢复时复用对应阶段能力
	}
	return e, nil
}

// Close 释放协程池
func (e *Engine) Close() {
	e.pool.Release()
}

// Dispatch 同步处理一个事件
func (e *Engine) Dispatch(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	handler, ok := e.handlers[ev.Kind]
	if !ok {
		return nil, &capability.ValidationError{Field: "kind", Reason: fmt.Sprintf("未知事件类型 %s", ev.Kind)}
	}
	return handler(ctx, ev)
}

// DispatchAsync 把事件提交到协程池异步处理
func (e *Engine) DispatchAsync(ctx context.Context, ev Event) error {
	return e.pool.Submit(func() {
		if _, err := e.Dispatch(ctx, ev); err != nil {
			if IsDuplicate(err) {
				logger.Info("Duplicate event discarded: %v", err)
				return
			}
			logger.Error("Event %s failed: %v", ev.Kind, err)
		}
	})
}

// lockFor 取串行化锁；同一键上的事件按到达顺序处理
func (e *Engine) lockFor(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	e.locks[key] = l
	return l
}

// handleDonationDetected 捐款检测事件：落库、建实例、跑需求预测
func (e *Engine) handleDonationDetected(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	if ev.Donation == nil {
		return nil, &capability.ValidationError{Field: "donation", Reason: "捐款数据不能为空"}
	}

	lock := e.lockFor("donation:" + ev.Donation.ID)
	lock.Lock()
	defer lock.Unlock()

	created, err := e.donationLogic.CreateDonation(ev.Donation)
	if err != nil {
		return nil, err
	}
	if !created {
		// 重复的捐款信号，记录后丢弃
		if err := e.auditStore.Append("donation:"+ev.Donation.ID, actorCoordinator, "duplicate_event", ev.Donation, "duplicate donation signal discarded"); err != nil {
			return nil, err
		}
		return nil, &DuplicateEventError{Key: ev.Donation.ID}
	}

	var project model.Project
	if err := e.db.First(&project, "id = ?", ev.Donation.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &capability.ValidationError{Field: "project_id", Reason: "项目不存在"}
		}
		return nil, err
	}

	inst := &model.WorkflowInstance{
		ID:         uuid.New().String(),
		DonationID: ev.Donation.ID,
		ProjectID:  ev.Donation.ProjectID,
		State:      string(model.StateDetected),
	}
	if err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		return e.auditStore.AppendTx(tx, inst.ID, actorCoordinator, string(model.StateDetected), ev.Donation, "donation recorded")
	}); err != nil {
		return inst, err
	}

	return inst, e.runForecast(ctx, inst, ev.Donation, &project)
}

// runForecast 需求预测阶段：Detected → NeedsPredicted → AwaitingMilestoneProof
func (e *Engine) runForecast(ctx context.Context, inst *model.WorkflowInstance, donation *model.Donation, project *model.Project) error {
	var forecast *capability.ForecastResult
	err := e.runStage(ctx, inst, "forecast", func(cctx context.Context) error {
		result, err := e.providers.Forecast.Predict(cctx, capability.ForecastRequest{
			ProjectID:     project.ID,
			DonatedAmount: donation.Amount,
		})
		if err != nil {
			return err
		}
		forecast = result
		return nil
	})
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"predicted_amount":   forecast.PredictedAmount,
		"predicted_timeline": forecast.Timeline,
		"confidence":         forecast.Confidence,
	}
	if err := e.db.Model(project).Updates(updates).Error; err != nil {
		return err
	}
	if err := e.transition(inst, model.StateNeedsPredicted, actorCoordinator, forecast, "forecast recorded"); err != nil {
		return err
	}

	// 预测完成后即进入等待证明状态，该转移不调用任何能力
	if err := e.transition(inst, model.StateAwaitingMilestoneProof, actorCoordinator, nil, "awaiting milestone proof"); err != nil {
		return err
	}

	logger.Info("Donation %s accepted, instance %s awaiting milestone proof", donation.ID, inst.ID)
	return nil
}

// handleProofSubmitted 里程碑证明提交事件：验证，然后按结果放款或终止
func (e *Engine) handleProofSubmitted(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	lock := e.lockFor("milestone:" + ev.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	// 证明重复投递且放款权已被占用时按重复事件丢弃
	holder, err := e.claims.Holder(ev.MilestoneID)
	if err != nil {
		return nil, err
	}
	if holder != "" {
		if err := e.auditStore.Append(holder, actorCoordinator, "duplicate_event", ev.MilestoneID, "duplicate proof submission discarded"); err != nil {
			return nil, err
		}
		return nil, &DuplicateEventError{Key: ev.MilestoneID}
	}

	// 先确认有实例在等这份证明，再落里程碑；
	// 不匹配的事件被拒绝时不留下任何状态变更
	projectID := ev.ProjectID
	if projectID == "" {
		var existing model.Milestone
		err := e.db.First(&existing, "id = ?", ev.MilestoneID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, &capability.ValidationError{Field: "project_id", Reason: "新里程碑必须指定项目ID"}
		case err != nil:
			return nil, err
		}
		projectID = existing.ProjectID
	}

	inst, err := e.instanceAwaitingProof(projectID)
	if err != nil {
		return nil, err
	}

	milestone, err := e.milestoneLogic.SubmitProof(ev.MilestoneID, projectID, ev.ProofRefs)
	if err != nil {
		return nil, err
	}

	if err := e.db.Model(inst).Update("milestone_id", milestone.ID).Error; err != nil {
		return inst, err
	}
	inst.MilestoneID = milestone.ID

	if err := e.transition(inst, model.StateMilestoneSubmitted, actorCoordinator, ev.ProofRefs, "proof submitted"); err != nil {
		return inst, err
	}

	return inst, e.runVerification(ctx, inst, milestone, ev.ProofRefs)
}

// runVerification 验证阶段：MilestoneSubmitted → {Verified | Rejected}，
// 通过后继续推进放款
func (e *Engine) runVerification(ctx context.Context, inst *model.WorkflowInstance, milestone *model.Milestone, proofRefs []string) error {
	var result *capability.VerifyResult
	err := e.runStage(ctx, inst, "verify", func(cctx context.Context) error {
		r, err := e.providers.Verify.Verify(cctx, capability.VerifyRequest{
			MilestoneID: milestone.ID,
			ProjectID:   milestone.ProjectID,
			ProofRefs:   proofRefs,
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}

	if !result.Verified {
		// 拒绝是终态，保留验证意见，不再有自动动作
		if err := e.milestoneLogic.MarkRejected(milestone.ID, result.Comments); err != nil {
			return err
		}
		if err := e.transition(inst, model.StateRejected, actorCoordinator, result, result.Comments); err != nil {
			return err
		}
		logger.Info("Milestone %s rejected: %s", milestone.ID, result.Comments)
		return nil
	}

	if err := e.milestoneLogic.MarkVerified(milestone.ID, result.Comments); err != nil {
		return err
	}
	// verified 必须先落审计，才允许尝试放款
	if err := e.transition(inst, model.StateVerified, actorCoordinator, result, "verification passed"); err != nil {
		return err
	}

	return e.proceedDisbursement(ctx, inst)
}

// handleVerifiedNotice 外部验证通过通知；
// 重复投递由幂等声明串行化，放款能力至多被调用一次
func (e *Engine) handleVerifiedNotice(ctx context.Context, ev Event) (*model.WorkflowInstance, error) {
	lock := e.lockFor("milestone:" + ev.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	var inst model.WorkflowInstance
	err := e.db.Where("milestone_id = ?", ev.MilestoneID).
		Order("created_at DESC").First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ConsistencyError{InstanceID: "", State: "", Event: string(ev.Kind)}
		}
		return nil, err
	}

	if inst.State == string(model.StateVerified) {
		return &inst, e.proceedDisbursement(ctx, &inst)
	}

	holder, err := e.claims.Holder(ev.MilestoneID)
	if err != nil {
		return &inst, err
	}
	if holder != "" {
		if err := e.auditStore.Append(inst.ID, actorCoordinator, "duplicate_event", ev.MilestoneID, "duplicate verified notice discarded"); err != nil {
			return &inst, err
		}
		return &inst, &DuplicateEventError{Key: ev.MilestoneID}
	}

	// 事件与状态不匹配，拒绝且不改变状态
	return &inst, &ConsistencyError{InstanceID: inst.ID, State: inst.State, Event: string(ev.Kind)}
}

// proceedDisbursement 从 verified 推进到放款和报告；
// 钱包校验在 verified→disbursing 边界执行，放款受幂等声明保护
func (e *Engine) proceedDisbursement(ctx context.Context, inst *model.WorkflowInstance) error {
	var project model.Project
	if err := e.db.First(&project, "id = ?", inst.ProjectID).Error; err != nil {
		return err
	}
	ngo, err := e.ngoLogic.GetNGO(project.NGOID)
	if err != nil {
		return e.escalate(inst, "disburse", err)
	}

	// 被标记的NGO禁止放款
	if ngo.Status == string(model.NGOStatusFlagged) {
		werr := &WalletValidationError{Wallet: ngo.Wallet, Reason: "NGO已被标记"}
		return e.escalate(inst, "disburse", werr)
	}
	if !common.IsHexAddress(ngo.Wallet) {
		werr := &WalletValidationError{Wallet: ngo.Wallet, Reason: "钱包地址非法"}
		return e.escalate(inst, "disburse", werr)
	}

	var donation model.Donation
	if err := e.db.First(&donation, "id = ?", inst.DonationID).Error; err != nil {
		return err
	}

	// 原子抢占放款执行权
	claim, err := e.claims.Claim(inst.MilestoneID, inst.ID)
	if err != nil {
		return err
	}
	if claim == idempotency.AlreadyClaimed {
		holder, err := e.claims.Holder(inst.MilestoneID)
		if err != nil {
			return err
		}
		if holder != inst.ID {
			return e.resumeFromExistingDisbursement(ctx, inst)
		}
		// 声明本就属于当前实例，继续未完成的放款
	} else {
		if err := e.transition(inst, model.StateDisbursing, actorCoordinator, inst.MilestoneID, "idempotency claim acquired"); err != nil {
			return err
		}
		record := model.DisbursementRecord{
			MilestoneID: inst.MilestoneID,
			ProjectID:   inst.ProjectID,
			Wallet:      ngo.Wallet,
			Amount:      donation.Amount,
			Status:      string(model.DisbursementStatusPending),
		}
		if err := e.db.Create(&record).Error; err != nil {
			return err
		}
	}

	return e.executeDisbursement(ctx, inst, &donation)
}

// executeDisbursement 调用放款能力并提交放款记录；
// 这是整个工作流中唯一允许产生外部副作用的转移
func (e *Engine) executeDisbursement(ctx context.Context, inst *model.WorkflowInstance, donation *model.Donation) error {
	var record model.DisbursementRecord
	if err := e.db.First(&record, "milestone_id = ?", inst.MilestoneID).Error; err != nil {
		return err
	}

	if record.Status != string(model.DisbursementStatusCommitted) {
		var disburseResult *capability.DisburseResult
		err := e.runStage(ctx, inst, "disburse", func(cctx context.Context) error {
			r, err := e.providers.Disburse.Disburse(cctx, capability.DisburseRequest{
				MilestoneID: inst.MilestoneID,
				ProjectID:   inst.ProjectID,
				Wallet:      record.Wallet,
				Amount:      record.Amount,
			})
			if err != nil {
				return err
			}
			disburseResult = r
			return nil
		})
		if err != nil {
			if uerr := e.db.Model(&record).Update("status", string(model.DisbursementStatusFailed)).Error; uerr != nil {
				logger.Error("Failed to mark disbursement %s as failed: %v", inst.MilestoneID, uerr)
			}
			return err
		}

		updates := map[string]interface{}{
			"status": string(model.DisbursementStatusCommitted),
			"tx_ref": disburseResult.TxRef,
		}
		if err := e.db.Model(&record).Updates(updates).Error; err != nil {
			return err
		}
		record.TxRef = disburseResult.TxRef
	}

	if err := e.transition(inst, model.StateDisbursed, actorCoordinator, record, "disbursement committed: "+record.TxRef); err != nil {
		return err
	}
	logger.Info("Milestone %s disbursed, tx %s", inst.MilestoneID, record.TxRef)

	return e.generateReport(ctx, inst, donation)
}

// resumeFromExistingDisbursement 执行权被其他实例占用时，
// 读取既有放款记录推进实例直到关闭，不再调用放款能力
func (e *Engine) resumeFromExistingDisbursement(ctx context.Context, inst *model.WorkflowInstance) error {
	if err := e.auditStore.Append(inst.ID, actorCoordinator, "duplicate_event", inst.MilestoneID, "claim already held, reusing existing disbursement"); err != nil {
		return err
	}

	var record model.DisbursementRecord
	err := e.db.First(&record, "milestone_id = ?", inst.MilestoneID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err != nil || record.Status != string(model.DisbursementStatusCommitted) ||
		inst.State != string(model.StateVerified) {
		// 放款尚未提交，只能等持有声明的实例完成
		return &DuplicateEventError{Key: inst.MilestoneID}
	}

	if err := e.transition(inst, model.StateDisbursing, actorCoordinator, inst.MilestoneID, "claim already held"); err != nil {
		return err
	}
	if err := e.transition(inst, model.StateDisbursed, actorCoordinator, record, "advanced on existing disbursement: "+record.TxRef); err != nil {
		return err
	}

	var donation model.Donation
	if err := e.db.First(&donation, "id = ?", inst.DonationID).Error; err != nil {
		return err
	}
	return e.generateReport(ctx, inst, &donation)
}

// generateReport 放款完成后生成影响力报告并关闭实例
func (e *Engine) generateReport(ctx context.Context, inst *model.WorkflowInstance, donation *model.Donation) error {
	completed, err := e.milestoneLogic.CompletedMilestoneIDs(inst.ProjectID)
	if err != nil {
		return err
	}

	var reportResult *capability.ReportResult
	err = e.runStage(ctx, inst, "report", func(cctx context.Context) error {
		r, err := e.providers.Report.Generate(cctx, capability.ReportRequest{
			DonorID:    donation.DonorID,
			ProjectID:  inst.ProjectID,
			Amount:     donation.Amount,
			Milestones: completed,
		})
		if err != nil {
			return err
		}
		reportResult = r
		return nil
	})
	if err != nil {
		return err
	}

	milestonesJSON, err := json.Marshal(completed)
	if err != nil {
		return err
	}
	report := model.ImpactReport{
		DonorID:     donation.DonorID,
		ProjectID:   inst.ProjectID,
		Amount:      donation.Amount,
		Milestones:  string(milestonesJSON),
		Narrative:   reportResult.Narrative,
		GeneratedAt: time.Now().UTC(),
	}
	if err := e.reportLogic.CreateReport(&report); err != nil {
		return err
	}

	if err := e.transition(inst, model.StateReportGenerated, actorCoordinator, reportResult, "impact report generated"); err != nil {
		return err
	}
	return e.transition(inst, model.StateClosed, actorCoordinator, nil, "workflow closed")
}

// instanceAwaitingProof 找项目下等待证明的实例
func (e *Engine) instanceAwaitingProof(projectID string) (*model.WorkflowInstance, error) {
	var inst model.WorkflowInstance
	err := e.db.Where("project_id = ? AND state = ?", projectID, string(model.StateAwaitingMilestoneProof)).
		Order("created_at ASC").First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ConsistencyError{InstanceID: "", State: "", Event: string(EventProofSubmitted)}
		}
		return nil, err
	}
	return &inst, nil
}

// runStage 执行一个阶段：带超时调用能力适配器，临时故障按策略重试，
// 重试耗尽或遇到不可重试错误时升级
func (e *Engine) runStage(ctx context.Context, inst *model.WorkflowInstance, stage string, fn func(ctx context.Context) error) error {
	cfg := e.policy.Stage(stage)

	for attempt := 0; ; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		err := fn(cctx)
		cancel()

		if err == nil {
			if inst.RetryCount != 0 {
				inst.RetryCount = 0
				e.db.Model(inst).Update("retry_count", 0)
			}
			return nil
		}

		if capability.IsTransient(err) && attempt < cfg.MaxRetries {
			inst.RetryCount = attempt + 1
			e.db.Model(inst).Update("retry_count", inst.RetryCount)
			logger.Warn("Stage %s attempt %d failed for instance %s: %v", stage, attempt+1, inst.ID, err)
			select {
			case <-time.After(cfg.Backoff(attempt)):
			case <-ctx.Done():
				return e.escalate(inst, stage, ctx.Err())
			}
			continue
		}

		return e.escalate(inst, stage, err)
	}
}

// escalate 升级实例：记录最后错误和来源状态，暂停该实例的自动推进；
// 只影响当前实例，不影响其他实例
func (e *Engine) escalate(inst *model.WorkflowInstance, stage string, cause error) error {
	inst.LastError = cause.Error()
	inst.EscalatedFrom = inst.State
	inst.State = string(model.StateEscalated)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"state":          inst.State,
			"last_error":     inst.LastError,
			"escalated_from": inst.EscalatedFrom,
		}
		if err := tx.Model(&model.WorkflowInstance{}).Where("id = ?", inst.ID).Updates(updates).Error; err != nil {
			return err
		}
		return e.auditStore.AppendTx(tx, inst.ID, actorCoordinator, string(model.StateEscalated),
			map[string]string{"stage": stage}, cause.Error())
	})
	if err != nil {
		return err
	}

	logger.Error("Instance %s escalated at stage %s: %v", inst.ID, stage, cause)
	return cause
}

// transition 状态转移：实例更新与审计追加在同一事务内提交，
// 审计失败则转移不生效
func (e *Engine) transition(inst *model.WorkflowInstance, to model.WorkflowState, actor string, input interface{}, outcome string) error {
	inst.State = string(to)
	return e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.WorkflowInstance{}).Where("id = ?", inst.ID).
			Update("state", string(to)).Error; err != nil {
			return err
		}
		return e.auditStore.AppendTx(tx, inst.ID, actor, string(to), input, outcome)
	})
}
