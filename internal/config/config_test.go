package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageBackoffReusesLastEntry(t *testing.T) {
	s := StageConfig{BackoffSeconds: []int{1, 5, 30}}

	assert.Equal(t, time.Second, s.Backoff(0))
	assert.Equal(t, 5*time.Second, s.Backoff(1))
	assert.Equal(t, 30*time.Second, s.Backoff(2))
	// 超出退避表的重试复用最后一项
	assert.Equal(t, 30*time.Second, s.Backoff(7))
}

func TestStageBackoffEmptyTable(t *testing.T) {
	s := StageConfig{}
	assert.Equal(t, time.Duration(0), s.Backoff(0))
}

func TestStageFallback(t *testing.T) {
	cfg := &Config{Stages: map[string]StageConfig{
		"forecast": {MaxRetries: 1, TimeoutSeconds: 10},
	}}

	assert.Equal(t, 10*time.Second, cfg.Stage("forecast").Timeout())

	fallback := cfg.Stage("unknown")
	assert.Equal(t, 3, fallback.MaxRetries)
	assert.Equal(t, 30*time.Second, fallback.Timeout())
}
