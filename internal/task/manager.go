package task

import (
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// Manager 任务管理器
type Manager struct {
	scheduler  gocron.Scheduler
	config     *config.Config
	ngoLogic   *logic.NGOLogic
	monitorCap capability.MonitorProvider
}

// NewManager 创建新的任务管理器
func NewManager(cfg *config.Config, ngoLogic *logic.NGOLogic, monitorCap capability.MonitorProvider) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler:  s,
		config:     cfg,
		ngoLogic:   ngoLogic,
		monitorCap: monitorCap,
	}
}

// Start 启动任务管理器
func Start(cfg *config.Config, ngoLogic *logic.NGOLogic, monitorCap capability.MonitorProvider) *Manager {
	manager := NewManager(cfg, ngoLogic, monitorCap)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 注册NGO监控任务
	m.RegisterNGOMonitorJob()
}

// RegisterNGOMonitorJob 注册NGO监控任务
func (m *Manager) RegisterNGOMonitorJob() {
	job := NewNGOMonitorJob(m.config, m.ngoLogic, m.monitorCap)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
