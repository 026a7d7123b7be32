package logic_test

import (
	"testing"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNGOLogic(t *testing.T) (*logic.NGOLogic, *gorm.DB) {
	db := testutil.NewDB(t)
	return logic.NewNGOLogic(db, audit.NewStore(db)), db
}

func TestAdmitCandidatesStrictThreshold(t *testing.T) {
	ngoLogic, _ := newNGOLogic(t)

	admitted, err := ngoLogic.AdmitCandidates([]capability.Candidate{
		{Name: "above", Country: "KE", Wallet: "0x1111111111111111111111111111111111111111", TrustScore: 81},
		{Name: "exactly", Country: "KE", Wallet: "0x2222222222222222222222222222222222222222", TrustScore: 80},
		{Name: "below", Country: "KE", Wallet: "0x3333333333333333333333333333333333333333", TrustScore: 42},
	}, 80)
	require.NoError(t, err)

	// 信任分等于阈值的候选也要丢弃
	require.Len(t, admitted, 1)
	assert.Equal(t, "above", admitted[0].Name)
	assert.Equal(t, string(model.NGOStatusActive), admitted[0].Status)

	active, err := ngoLogic.ListActive()
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestFlagBlocksAndKeepsRecord(t *testing.T) {
	ngoLogic, db := newNGOLogic(t)

	require.NoError(t, db.Create(&model.NGORecord{
		ID: "ngo-1", Name: "relief fund", Wallet: "0x1111111111111111111111111111111111111111",
		TrustScore: 90, Status: string(model.NGOStatusActive),
	}).Error)

	require.NoError(t, ngoLogic.Flag("ngo-1", []string{"registry", "press", "court"}))

	flagged, err := ngoLogic.IsFlagged("ngo-1")
	require.NoError(t, err)
	assert.True(t, flagged)

	record, err := ngoLogic.GetNGO("ngo-1")
	require.NoError(t, err)
	assert.Equal(t, string(model.NGOStatusFlagged), record.Status)
	assert.Contains(t, record.FlagSources, "registry")

	// 标记不会出现在准入名录中
	active, err := ngoLogic.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestFlagUnknownNGO(t *testing.T) {
	ngoLogic, _ := newNGOLogic(t)
	require.Error(t, ngoLogic.Flag("missing", []string{"registry"}))
}

func TestListNGOsByStatus(t *testing.T) {
	ngoLogic, db := newNGOLogic(t)

	for i, status := range []string{"active", "flagged", "active"} {
		require.NoError(t, db.Create(&model.NGORecord{
			ID: string(rune('a' + i)), Name: string(rune('a' + i)),
			Wallet: "0x1111111111111111111111111111111111111111", Status: status,
		}).Error)
	}

	all, err := ngoLogic.ListNGOs("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	flagged, err := ngoLogic.ListNGOs(string(model.NGOStatusFlagged))
	require.NoError(t, err)
	assert.Len(t, flagged, 1)
}
