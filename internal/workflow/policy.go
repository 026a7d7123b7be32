package workflow

import (
	"github.com/blues/cps/internal/config"
)

// Policy 升级策略：每个阶段独立配置最大重试次数、退避间隔和超时。
// 协调器和NGO生命周期共用同一套策略
type Policy struct {
	stages   map[string]config.StageConfig
	fallback config.StageConfig
}

// NewPolicy 从配置构建升级策略
func NewPolicy(cfg *config.Config) *Policy {
	stages := make(map[string]config.StageConfig, len(cfg.Stages))
	for name, s := range cfg.Stages {
		stages[name] = s
	}
	return &Policy{
		stages:   stages,
		fallback: config.StageConfig{MaxRetries: 3, BackoffSeconds: []int{1, 5, 30}, TimeoutSeconds: 30},
	}
}

// NewPolicyFromStages 直接从阶段表构建策略，测试用
func NewPolicyFromStages(stages map[string]config.StageConfig) *Policy {
	return &Policy{stages: stages, fallback: config.StageConfig{MaxRetries: 0, TimeoutSeconds: 5}}
}

// Stage 取指定阶段的策略
func (p *Policy) Stage(name string) config.StageConfig {
	if s, ok := p.stages[name]; ok {
		return s
	}
	return p.fallback
}
