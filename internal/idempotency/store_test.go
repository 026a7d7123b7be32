package idempotency_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blues/cps/internal/idempotency"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimOnlyOnce(t *testing.T) {
	store := idempotency.NewStore(testutil.NewDB(t))

	res, err := store.Claim("ms-1", "inst-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.Acquired, res)

	res, err = store.Claim("ms-1", "inst-b")
	require.NoError(t, err)
	assert.Equal(t, idempotency.AlreadyClaimed, res)

	holder, err := store.Holder("ms-1")
	require.NoError(t, err)
	assert.Equal(t, "inst-a", holder)
}

func TestClaimDistinctKeys(t *testing.T) {
	store := idempotency.NewStore(testutil.NewDB(t))

	res, err := store.Claim("ms-1", "inst-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.Acquired, res)

	res, err = store.Claim("ms-2", "inst-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.Acquired, res)
}

func TestHolderMissingKey(t *testing.T) {
	store := idempotency.NewStore(testutil.NewDB(t))

	holder, err := store.Holder("nope")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	store := idempotency.NewStore(testutil.NewDB(t))

	const n = 16
	var wg sync.WaitGroup
	var acquired int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.Claim("ms-1", "inst-"+string(rune('a'+i)))
			if err == nil && res == idempotency.Acquired {
				atomic.AddInt32(&acquired, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, acquired)
}
