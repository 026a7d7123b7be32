package task

import (
	"context"
	"sync"
	"time"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// NGOMonitorJob NGO监控任务，周期性扫描全部已准入NGO；
// 只有超过阈值数量的独立证据来源相互印证时才标记
type NGOMonitorJob struct {
	config     *config.Config
	ngoLogic   *logic.NGOLogic
	monitorCap capability.MonitorProvider
}

// NewNGOMonitorJob 创建NGO监控任务
func NewNGOMonitorJob(cfg *config.Config, ngoLogic *logic.NGOLogic, monitorCap capability.MonitorProvider) *NGOMonitorJob {
	return &NGOMonitorJob{
		config:     cfg,
		ngoLogic:   ngoLogic,
		monitorCap: monitorCap,
	}
}

// GetName 获取任务名称
func (j *NGOMonitorJob) GetName() string {
	return "ngo_monitor"
}

// GetSchedule 获取调度配置，默认每周一次
func (j *NGOMonitorJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Monitor.IntervalHours) * time.Hour)
}

// Execute 执行任务
func (j *NGOMonitorJob) Execute() {
	logger.Info("Starting NGO monitor scan")

	ngos, err := j.ngoLogic.ListActive()
	if err != nil {
		logger.Error("Failed to list active NGOs: %v", err)
		return
	}
	if len(ngos) == 0 {
		logger.Info("No active NGOs to scan")
		return
	}

	// 按NGO数量建临时协程池并发扫描
	pool, err := ants.NewPool(len(ngos))
	if err != nil {
		logger.Error("Failed to create scan pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range ngos {
		ngo := ngos[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			j.scanNGO(ngo.ID, ngo.Name)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit scan task for NGO %s: %v", ngo.Name, err)
		}
	}
	wg.Wait()

	logger.Info("NGO monitor scan completed for %d NGOs", len(ngos))
}

// scanNGO 扫描单个NGO，临时故障按监控阶段策略重试
func (j *NGOMonitorJob) scanNGO(ngoID, name string) bool {
	stage := j.config.Stage("monitor")

	var findings []capability.Finding
	var err error
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), stage.Timeout())
		findings, err = j.monitorCap.Scan(ctx, ngoID)
		cancel()

		if err == nil {
			break
		}
		if capability.IsTransient(err) && attempt < stage.MaxRetries {
			logger.Warn("Monitor scan attempt %d failed for NGO %s: %v", attempt+1, name, err)
			time.Sleep(stage.Backoff(attempt))
			continue
		}
		logger.Error("Monitor scan failed for NGO %s: %v", name, err)
		return false
	}

	sources := DistinctSources(findings)
	if len(sources) <= j.config.Monitor.SourceThreshold {
		if len(findings) > 0 {
			logger.Info("NGO %s has %d findings from %d sources, below flag threshold", name, len(findings), len(sources))
		}
		return false
	}

	if err := j.ngoLogic.Flag(ngoID, sources); err != nil {
		logger.Error("Failed to flag NGO %s: %v", name, err)
		return false
	}
	return true
}

// DistinctSources 提取相互独立的证据来源
func DistinctSources(findings []capability.Finding) []string {
	seen := make(map[string]bool, len(findings))
	var sources []string
	for _, f := range findings {
		if f.Source == "" || seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		sources = append(sources, f.Source)
	}
	return sources
}
