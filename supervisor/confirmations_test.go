// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/supervisor/memdb"
)

func testTracker() *Tracker {
	return newTracker(newSchema(memdb.New()), prefixConfigConfirms)
}

func TestTrackerConfirmAndCount(t *testing.T) {
	require := require.New(t)

	tr := testTracker()
	v1, v2 := ids.NodeID{1}, ids.NodeID{2}

	require.Equal(0, tr.Count("k"))
	require.NoError(tr.Confirm("k", v1))
	require.True(tr.ConfirmedBy("k", v1))
	require.False(tr.ConfirmedBy("k", v2))
	require.Equal(1, tr.Count("k"))

	// Idempotent.
	require.NoError(tr.Confirm("k", v1))
	require.Equal(1, tr.Count("k"))

	require.NoError(tr.Confirm("k", v2))
	require.Equal(2, tr.Count("k"))
}

func TestTrackerConfirmingValidatorsSorted(t *testing.T) {
	require := require.New(t)

	tr := testTracker()
	v1, v2, v3 := ids.NodeID{3}, ids.NodeID{1}, ids.NodeID{2}
	require.NoError(tr.Confirm("k", v1))
	require.NoError(tr.Confirm("k", v2))
	require.NoError(tr.Confirm("k", v3))

	got := tr.ConfirmingValidators("k")
	require.Len(got, 3)
	for i := 1; i < len(got); i++ {
		require.Less(got[i-1].String(), got[i].String())
	}
}

func TestTrackerIntersectWithValidatorsDecentralized(t *testing.T) {
	require := require.New(t)

	tr := testTracker()
	v1, v2, v3, v4 := ids.NodeID{1}, ids.NodeID{2}, ids.NodeID{3}, ids.NodeID{4}
	all := []ids.NodeID{v1, v2, v3, v4}

	require.NoError(tr.Confirm("k", v1))
	require.NoError(tr.Confirm("k", v2))
	require.False(tr.IntersectWithValidators("k", all, ModeDecentralized))

	require.NoError(tr.Confirm("k", v3))
	require.True(tr.IntersectWithValidators("k", all, ModeDecentralized))
}

func TestTrackerIntersectIgnoresDepartedValidator(t *testing.T) {
	require := require.New(t)

	tr := testTracker()
	v1, v2, v3, v4 := ids.NodeID{1}, ids.NodeID{2}, ids.NodeID{3}, ids.NodeID{4}

	require.NoError(tr.Confirm("k", v1))
	require.NoError(tr.Confirm("k", v2))
	require.NoError(tr.Confirm("k", v3))

	// v3 has left the validator set; quorum must be recomputed against the
	// current membership, not the set in place when the votes were cast.
	current := []ids.NodeID{v1, v2, v4}
	require.False(tr.IntersectWithValidators("k", current, ModeDecentralized))
}

func TestTrackerIntersectSimpleModeSingleVote(t *testing.T) {
	require := require.New(t)

	tr := testTracker()
	v1, v2 := ids.NodeID{1}, ids.NodeID{2}
	require.NoError(tr.Confirm("k", v1))

	require.True(tr.IntersectWithValidators("k", []ids.NodeID{v1, v2}, ModeSimple))
}

func TestTrackerSurvivesReopenAgainstSameDatabase(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	v1 := ids.NodeID{1}

	first := newTracker(newSchema(db), prefixDeployRequests)
	require.NoError(first.Confirm("artifact-key", v1))

	// A fresh Tracker over the same db+prefix (standing in for a node
	// restart) must recover the vote instead of starting empty.
	reopened := newTracker(newSchema(db), prefixDeployRequests)
	require.True(reopened.ConfirmedBy("artifact-key", v1))
	require.Equal(1, reopened.Count("artifact-key"))
}
