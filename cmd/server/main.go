package main

import (
	"log"
	"time"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logger"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/repository"
	"github.com/blues/cps/internal/router"
	"github.com/blues/cps/internal/task"
	"github.com/blues/cps/internal/tracker"
	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if cfg.Log.Output == "file" {
		l, err := logger.NewWithFileRotation(logger.ParseLogLevel(cfg.Log.Level), cfg.Log.File)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		logger.SetDefaultLogger(l)
	}

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 能力适配器
	capCfg := cfg.Capability
	providers := workflow.Providers{
		Forecast: capability.NewHTTPForecastProvider(capCfg.ForecastURL, cfg.Stage("forecast").Timeout()),
		Verify:   capability.NewHTTPVerificationProvider(capCfg.VerifyURL, cfg.Stage("verify").Timeout()),
		Disburse: capability.NewHTTPDisbursementProvider(capCfg.DisburseURL, cfg.Stage("disburse").Timeout()),
		Report:   capability.NewHTTPReportProvider(capCfg.ReportURL, cfg.Stage("report").Timeout()),
	}
	researchCap := capability.NewHTTPResearchProvider(capCfg.ResearchURL, cfg.Stage("research").Timeout())
	monitorCap := capability.NewHTTPMonitorProvider(capCfg.MonitorURL, cfg.Stage("monitor").Timeout())

	// 工作流协调器
	ngoLogic := logic.NewNGOLogic(db, audit.NewStore(db))
	engine, err := workflow.NewEngine(db, providers, workflow.NewPolicy(cfg), ngoLogic)
	if err != nil {
		logger.Fatal("Failed to create workflow engine: %v", err)
	}
	defer engine.Close()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, engine, ngoLogic, researchCap, cfg)

	// 启动定时任务
	manager := task.Start(cfg, ngoLogic, monitorCap)
	defer manager.Stop()

	// 启动捐款轮询
	if cfg.Tracker.Enabled {
		source := capability.NewHTTPDonationSource(capCfg.TrackerURL, cfg.Stage("tracker").Timeout())
		watcher := tracker.NewWatcher(source, engine, time.Duration(cfg.Tracker.IntervalSeconds)*time.Second)
		watcher.Start()
		defer watcher.Stop()
	}

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
