package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMonitor struct {
	calls    int32
	failures int32
	findings []capability.Finding
}

func (f *fakeMonitor) Scan(ctx context.Context, ngoID string) ([]capability.Finding, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, &capability.TransientProviderError{Stage: "monitor", Err: errors.New("scan timeout")}
	}
	return f.findings, nil
}

func newMonitorJob(t *testing.T, monitor capability.MonitorProvider) (*NGOMonitorJob, *gorm.DB) {
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Monitor: config.MonitorConfig{IntervalHours: 168, SourceThreshold: 2},
		Stages: map[string]config.StageConfig{
			"monitor": {MaxRetries: 2, TimeoutSeconds: 5},
		},
	}
	ngoLogic := logic.NewNGOLogic(db, audit.NewStore(db))
	return NewNGOMonitorJob(cfg, ngoLogic, monitor), db
}

func seedActiveNGO(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&model.NGORecord{
		ID: id, Name: "ngo-" + id, Wallet: "0x1111111111111111111111111111111111111111",
		TrustScore: 90, Status: string(model.NGOStatusActive),
	}).Error)
}

func TestScanFlagsOnCorroboratingSources(t *testing.T) {
	monitor := &fakeMonitor{findings: []capability.Finding{
		{Source: "registry", Summary: "license revoked"},
		{Source: "press", Summary: "misuse allegations"},
		{Source: "court", Summary: "pending fraud case"},
	}}
	job, db := newMonitorJob(t, monitor)
	seedActiveNGO(t, db, "ngo-1")

	assert.True(t, job.scanNGO("ngo-1", "ngo-1"))

	var record model.NGORecord
	require.NoError(t, db.First(&record, "id = ?", "ngo-1").Error)
	assert.Equal(t, string(model.NGOStatusFlagged), record.Status)
}

func TestScanBelowThresholdDoesNotFlag(t *testing.T) {
	// 两个独立来源不超过阈值，单一来源的重复发现也不计数
	monitor := &fakeMonitor{findings: []capability.Finding{
		{Source: "press", Summary: "misuse allegations"},
		{Source: "press", Summary: "followup coverage"},
		{Source: "registry", Summary: "license expired"},
	}}
	job, db := newMonitorJob(t, monitor)
	seedActiveNGO(t, db, "ngo-1")

	assert.False(t, job.scanNGO("ngo-1", "ngo-1"))

	var record model.NGORecord
	require.NoError(t, db.First(&record, "id = ?", "ngo-1").Error)
	assert.Equal(t, string(model.NGOStatusActive), record.Status)
}

func TestScanRetriesTransientFailures(t *testing.T) {
	monitor := &fakeMonitor{failures: 2, findings: []capability.Finding{
		{Source: "registry"}, {Source: "press"}, {Source: "court"},
	}}
	job, db := newMonitorJob(t, monitor)
	seedActiveNGO(t, db, "ngo-1")

	assert.True(t, job.scanNGO("ngo-1", "ngo-1"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&monitor.calls))

	var record model.NGORecord
	require.NoError(t, db.First(&record, "id = ?", "ngo-1").Error)
	assert.Equal(t, string(model.NGOStatusFlagged), record.Status)
}

func TestExecuteScansAllActiveNGOs(t *testing.T) {
	monitor := &fakeMonitor{findings: []capability.Finding{
		{Source: "registry"}, {Source: "press"}, {Source: "court"},
	}}
	job, db := newMonitorJob(t, monitor)
	for _, id := range []string{"a", "b", "c"} {
		seedActiveNGO(t, db, id)
	}

	// Execute 等全部扫描结束后才返回
	job.Execute()

	var flagged int64
	require.NoError(t, db.Model(&model.NGORecord{}).
		Where("status = ?", string(model.NGOStatusFlagged)).Count(&flagged).Error)
	assert.EqualValues(t, 3, flagged)
}

func TestDistinctSources(t *testing.T) {
	sources := DistinctSources([]capability.Finding{
		{Source: "registry"},
		{Source: "press"},
		{Source: "registry"},
		{Source: ""},
	})
	assert.Equal(t, []string{"registry", "press"}, sources)
	assert.Empty(t, DistinctSources(nil))
}
