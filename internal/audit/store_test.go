package audit_test

import (
	"testing"

	"github.com/blues/cps/internal/audit"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndListByInstance(t *testing.T) {
	store := audit.NewStore(testutil.NewDB(t))

	require.NoError(t, store.Append("inst-1", "coordinator", "detected", map[string]string{"id": "don-1"}, "donation recorded"))
	require.NoError(t, store.Append("inst-1", "coordinator", "needs_predicted", nil, "forecast recorded"))
	require.NoError(t, store.Append("inst-2", "coordinator", "detected", nil, "donation recorded"))

	entries, err := store.ListByInstance("inst-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "detected", entries[0].Action)
	assert.Equal(t, "needs_predicted", entries[1].Action)
	assert.Equal(t, "coordinator", entries[0].Actor)
	assert.NotEmpty(t, entries[0].InputDigest)
	assert.Empty(t, entries[1].InputDigest)
}

func TestHasAction(t *testing.T) {
	store := audit.NewStore(testutil.NewDB(t))

	require.NoError(t, store.Append("inst-1", "coordinator", "disbursed", nil, "committed"))

	ok, err := store.HasAction("inst-1", "disbursed")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasAction("inst-1", "closed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountByAction(t *testing.T) {
	store := audit.NewStore(testutil.NewDB(t))

	require.NoError(t, store.Append("inst-1", "coordinator", "disbursed", nil, ""))
	require.NoError(t, store.Append("inst-2", "coordinator", "disbursed", nil, ""))
	require.NoError(t, store.Append("inst-3", "coordinator", "closed", nil, ""))

	count, err := store.CountByAction("disbursed")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestDigestStableForEqualInput(t *testing.T) {
	a := audit.Digest(map[string]string{"k": "v"})
	b := audit.Digest(map[string]string{"k": "v"})
	c := audit.Digest(map[string]string{"k": "w"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Empty(t, audit.Digest(nil))
}
