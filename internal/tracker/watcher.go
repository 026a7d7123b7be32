package tracker

import (
	"context"
	"time"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/workflow"
)

// Watcher 捐款轮询器，定期向捐款检测能力拉取新捐款，
// 逐笔转为 donation_detected 事件交给协调器
type Watcher struct {
	source   capability.DonationSource
	engine   *workflow.Engine
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher 创建捐款轮询器
func NewWatcher(source capability.DonationSource, engine *workflow.Engine, interval time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Watcher{
		source:   source,
		engine:   engine,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 启动轮询循环
func (w *Watcher) Start() {
	logger.Info("Donation watcher started with interval %s", w.interval)
	go w.watchLoop()
}

// Stop 停止轮询
func (w *Watcher) Stop() {
	w.cancel()
}

// watchLoop 轮询循环
func (w *Watcher) watchLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			logger.Info("Donation watcher stopped")
			return
		case <-ticker.C:
			if err := w.poll(); err != nil {
				logger.Error("Error polling donations: %v", err)
			}
		}
	}
}

// poll 拉取一轮新捐款并派发事件；
// 重复的捐款信号由协调器按重复事件丢弃
func (w *Watcher) poll() error {
	donations, err := w.source.Poll(w.ctx)
	if err != nil {
		return err
	}
	if len(donations) == 0 {
		return nil
	}

	logger.Info("Detected %d new donations", len(donations))
	for _, d := range donations {
		ev := workflow.Event{
			Kind: workflow.EventDonationDetected,
			Donation: &model.Donation{
				ID:        d.ID,
				DonorID:   d.DonorID,
				Amount:    d.Amount,
				Currency:  d.Currency,
				TxRef:     d.TxRef,
				Timestamp: d.Timestamp,
				ProjectID: d.ProjectID,
			},
		}
		if err := w.engine.DispatchAsync(w.ctx, ev); err != nil {
			logger.Error("Failed to submit donation event %s: %v", d.ID, err)
		}
	}
	return nil
}
