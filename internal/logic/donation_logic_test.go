package logic_test

import (
	"testing"
	"time"

	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDonationIdempotent(t *testing.T) {
	dl := logic.NewDonationLogic(testutil.NewDB(t))

	donation := &model.Donation{
		ID: "don-1", DonorID: "donor-1", Amount: 500, Currency: "USDC",
		TxRef: "tx-1", Timestamp: time.Now().UTC(), ProjectID: "proj-1",
	}
	created, err := dl.CreateDonation(donation)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = dl.CreateDonation(donation)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := dl.GetDonation("don-1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Amount)
}

func TestCreateDonationValidation(t *testing.T) {
	dl := logic.NewDonationLogic(testutil.NewDB(t))
	now := time.Now().UTC()

	cases := []model.Donation{
		{DonorID: "d", Amount: 1, ProjectID: "p", Timestamp: now},
		{ID: "x", Amount: 1, ProjectID: "p", Timestamp: now},
		{ID: "x", DonorID: "d", Amount: 0, ProjectID: "p", Timestamp: now},
		{ID: "x", DonorID: "d", Amount: -5, ProjectID: "p", Timestamp: now},
		{ID: "x", DonorID: "d", Amount: 1, Timestamp: now},
	}
	for _, donation := range cases {
		d := donation
		_, err := dl.CreateDonation(&d)
		require.Error(t, err)
	}
}
