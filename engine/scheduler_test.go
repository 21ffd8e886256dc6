package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexedCoversEveryIndex(t *testing.T) {
	for _, workers := range []int{1, 4, 64} {
		n := 100
		seen := make([]int32, n)
		runIndexed(context.Background(), n, workers, func(i int) {
			atomic.AddInt32(&seen[i], 1)
		})
		for i, cnt := range seen {
			assert.Equal(t, int32(1), cnt, "workers=%d index=%d", workers, i)
		}
	}
}

func TestRunIndexedSequentialOrder(t *testing.T) {
	var order []int
	runIndexed(context.Background(), 10, 1, func(i int) {
		order = append(order, i)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestRunIndexedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// sequential path checks the context before every call
	var ran int32
	runIndexed(ctx, 100, 1, func(i int) {
		atomic.AddInt32(&ran, 1)
	})
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))

	// parallel path stops feeding, a few indexes may already be in flight
	ran = 0
	runIndexed(ctx, 100, 4, func(i int) {
		atomic.AddInt32(&ran, 1)
	})
	assert.Less(t, atomic.LoadInt32(&ran), int32(100))
}

func TestRunPairsOutcomeAlignment(t *testing.T) {
	c, store := newTestClient(t)
	seedObjects(t, store, "b", "src/a", "src/b", "src/c")

	pairs := mustExpand(t, c, "s3://b/src", "s3://b/dst", Options{Recursive: true})
	require.Len(t, pairs, 3)

	outcomes := c.runPairs(context.Background(), pairs, 4)
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, pairs[i].Dst, o.Pair.Dst, "index %d", i)
		assert.False(t, o.Failed())
	}
}

func TestRunPairsCancelledReportsEveryPair(t *testing.T) {
	c, store := newTestClient(t)
	seedObjects(t, store, "b", "src/a", "src/b")

	pairs := mustExpand(t, c, "s3://b/src", "s3://b/dst", Options{Recursive: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := c.runPairs(ctx, pairs, 1)
	require.Len(t, outcomes, len(pairs))
	for _, o := range outcomes {
		require.True(t, o.Failed())
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestOutcomesError(t *testing.T) {
	assert.NoError(t, outcomesError(nil))
	assert.NoError(t, outcomesError([]Outcome{{}, {Skipped: true}}))

	err := outcomesError([]Outcome{
		{},
		{Err: &TransferError{Src: "s3://b/x", Dst: "/tmp/x", Err: ErrNotFound}},
	})
	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 2, pf.Total)
	require.Len(t, pf.Failed, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
