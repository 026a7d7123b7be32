package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/testutil"
	"github.com/blues/cps/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	donations []capability.TrackedDonation
}

func (f *fakeSource) Poll(ctx context.Context) ([]capability.TrackedDonation, error) {
	return f.donations, nil
}

type stubForecast struct{}

func (stubForecast) Predict(ctx context.Context, req capability.ForecastRequest) (*capability.ForecastResult, error) {
	return &capability.ForecastResult{PredictedAmount: 100, Timeline: "1 month", Confidence: 0.5}, nil
}

type stubVerify struct{}

func (stubVerify) Verify(ctx context.Context, req capability.VerifyRequest) (*capability.VerifyResult, error) {
	return &capability.VerifyResult{Verified: true}, nil
}

type stubDisburse struct{}

func (stubDisburse) Disburse(ctx context.Context, req capability.DisburseRequest) (*capability.DisburseResult, error) {
	return &capability.DisburseResult{TxRef: "0xabc"}, nil
}

type stubReport struct{}

func (stubReport) Generate(ctx context.Context, req capability.ReportRequest) (*capability.ReportResult, error) {
	return &capability.ReportResult{Narrative: "done"}, nil
}

func TestPollDispatchesDetectedDonations(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Create(&model.NGORecord{
		ID: "ngo-1", Name: "relief", Wallet: "0x1111111111111111111111111111111111111111",
		Status: string(model.NGOStatusActive),
	}).Error)
	require.NoError(t, db.Create(&model.Project{ID: "proj-1", NGOID: "ngo-1", Name: "wells"}).Error)

	ngoLogic := logic.NewNGOLogic(db, audit.NewStore(db))
	engine, err := workflow.NewEngine(db, workflow.Providers{
		Forecast: stubForecast{},
		Verify:   stubVerify{},
		Disburse: stubDisburse{},
		Report:   stubReport{},
	}, workflow.NewPolicyFromStages(map[string]config.StageConfig{
		"forecast": {TimeoutSeconds: 5},
	}), ngoLogic)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	source := &fakeSource{donations: []capability.TrackedDonation{
		{ID: "don-1", DonorID: "donor-1", Amount: 100, Currency: "USDC", TxRef: "tx-1", Timestamp: time.Now().UTC(), ProjectID: "proj-1"},
		{ID: "don-1", DonorID: "donor-1", Amount: 100, Currency: "USDC", TxRef: "tx-1", Timestamp: time.Now().UTC(), ProjectID: "proj-1"},
	}}
	w := NewWatcher(source, engine, time.Minute)
	t.Cleanup(w.Stop)

	require.NoError(t, w.poll())

	// 事件异步处理，等实例落到等待证明状态；重复信号只产生一个实例
	require.Eventually(t, func() bool {
		var count int64
		db.Model(&model.WorkflowInstance{}).
			Where("state = ?", string(model.StateAwaitingMilestoneProof)).Count(&count)
		return count == 1
	}, 3*time.Second, 20*time.Millisecond)

	var total int64
	db.Model(&model.WorkflowInstance{}).Count(&total)
	assert.EqualValues(t, 1, total)
}
