package logic_test

import (
	"testing"

	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/model"
	"github.com/blues/cps/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitProofCreatesAndResubmits(t *testing.T) {
	db := testutil.NewDB(t)
	ml := logic.NewMilestoneLogic(db)

	ms, err := ml.SubmitProof("ms-1", "proj-1", []string{"a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Seq)
	assert.Equal(t, string(model.MilestoneStatusSubmitted), ms.Status)

	// 未到终态前可以补交证明
	ms, err = ml.SubmitProof("ms-1", "", []string{"a.jpg", "b.pdf"})
	require.NoError(t, err)
	assert.Contains(t, ms.ProofRefs, "b.pdf")

	ms2, err := ml.SubmitProof("ms-2", "proj-1", []string{"c.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 2, ms2.Seq)
}

func TestSubmitProofValidation(t *testing.T) {
	ml := logic.NewMilestoneLogic(testutil.NewDB(t))

	_, err := ml.SubmitProof("", "proj-1", []string{"a"})
	require.Error(t, err)

	_, err = ml.SubmitProof("ms-1", "proj-1", nil)
	require.Error(t, err)

	_, err = ml.SubmitProof("ms-1", "", []string{"a"})
	require.Error(t, err)
}

func TestTerminalMilestoneRejectsResubmission(t *testing.T) {
	ml := logic.NewMilestoneLogic(testutil.NewDB(t))

	_, err := ml.SubmitProof("ms-1", "proj-1", []string{"a.jpg"})
	require.NoError(t, err)
	require.NoError(t, ml.MarkRejected("ms-1", "insufficient evidence"))

	// 拒绝是终态，状态不会回退
	_, err = ml.SubmitProof("ms-1", "", []string{"better.jpg"})
	require.Error(t, err)
	require.Error(t, ml.MarkVerified("ms-1", ""))

	ms, err := ml.GetMilestone("ms-1")
	require.NoError(t, err)
	assert.Equal(t, string(model.MilestoneStatusRejected), ms.Status)
	assert.Equal(t, "insufficient evidence", ms.Comments)
}

func TestCompletedMilestoneIDsOrderedBySeq(t *testing.T) {
	ml := logic.NewMilestoneLogic(testutil.NewDB(t))

	for _, id := range []string{"ms-1", "ms-2", "ms-3"} {
		_, err := ml.SubmitProof(id, "proj-1", []string{"a"})
		require.NoError(t, err)
	}
	require.NoError(t, ml.MarkVerified("ms-1", ""))
	require.NoError(t, ml.MarkVerified("ms-3", ""))
	require.NoError(t, ml.MarkRejected("ms-2", "no receipts"))

	ids, err := ml.CompletedMilestoneIDs("proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ms-1", "ms-3"}, ids)
}
