package config

import (
	"time"

	"github.com/blues/cps/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig           `mapstructure:"server"`
	Database   DatabaseConfig         `mapstructure:"database"`
	Capability CapabilityConfig       `mapstructure:"capability"`
	Stages     map[string]StageConfig `mapstructure:"stages"`
	Research   ResearchConfig         `mapstructure:"research"`
	Monitor    MonitorConfig          `mapstructure:"monitor"`
	Tracker    TrackerConfig          `mapstructure:"tracker"`
	Log        LogConfig              `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// CapabilityConfig 外部能力服务配置
type CapabilityConfig struct {
	ForecastURL string `mapstructure:"forecast_url"` // 需求预测服务
	VerifyURL   string `mapstructure:"verify_url"`   // 里程碑验证服务
	DisburseURL string `mapstructure:"disburse_url"` // 放款服务
	ReportURL   string `mapstructure:"report_url"`   // 影响力报告服务
	ResearchURL string `mapstructure:"research_url"` // NGO检索服务
	MonitorURL  string `mapstructure:"monitor_url"`  // NGO监控服务
	TrackerURL  string `mapstructure:"tracker_url"`  // 捐款检测服务
}

// StageConfig 单阶段的重试与超时配置
type StageConfig struct {
	MaxRetries     int   `mapstructure:"max_retries"`
	BackoffSeconds []int `mapstructure:"backoff_seconds"` // 重试间隔表，超出部分复用最后一项
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
}

// Timeout 阶段调用超时
func (s StageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Backoff 第n次重试前的等待时长
func (s StageConfig) Backoff(attempt int) time.Duration {
	if len(s.BackoffSeconds) == 0 {
		return 0
	}
	if attempt >= len(s.BackoffSeconds) {
		attempt = len(s.BackoffSeconds) - 1
	}
	return time.Duration(s.BackoffSeconds[attempt]) * time.Second
}

// ResearchConfig NGO检索准入配置
type ResearchConfig struct {
	TrustThreshold float64 `mapstructure:"trust_threshold"` // 信任分高于此值才准入
}

// MonitorConfig NGO监控配置
type MonitorConfig struct {
	IntervalHours   int `mapstructure:"interval_hours"`   // 扫描周期，默认每周
	SourceThreshold int `mapstructure:"source_threshold"` // 独立证据来源数高于此值才标记
}

// TrackerConfig 捐款轮询配置
type TrackerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/cps")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "charity")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("research.trust_threshold", 80)
	viper.SetDefault("monitor.interval_hours", 168)
	viper.SetDefault("monitor.source_threshold", 2)
	viper.SetDefault("tracker.enabled", true)
	viper.SetDefault("tracker.interval_seconds", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	for _, stage := range []string{"forecast", "verify", "disburse", "report", "research", "monitor", "tracker"} {
		viper.SetDefault("stages."+stage+".max_retries", 3)
		viper.SetDefault("stages."+stage+".backoff_seconds", []int{1, 5, 30})
		viper.SetDefault("stages."+stage+".timeout_seconds", 30)
	}

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}

// Stage 按名称取阶段配置，未配置时返回保守默认值
func (c *Config) Stage(name string) StageConfig {
	if s, ok := c.Stages[name]; ok {
		return s
	}
	return StageConfig{MaxRetries: 3, BackoffSeconds: []int{1, 5, 30}, TimeoutSeconds: 30}
}
