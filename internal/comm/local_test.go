package comm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleReturnsOwnValue(t *testing.T) {
	c := Single{}
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())

	total, err := c.AllReduceSum(context.Background(), 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, total)
}

func TestLocalGroupAllReduceSum(t *testing.T) {
	ranks := NewLocalGroup(4)

	var wg sync.WaitGroup
	totals := make([]float64, 4)
	errs := make([]error, 4)
	for i, r := range ranks {
		wg.Add(1)
		go func(i int, r *LocalRank) {
			defer wg.Done()
			totals[i], errs[i] = r.AllReduceSum(context.Background(), float64(i+1))
		}(i, r)
	}
	wg.Wait()

	// 1+2+3+4: every rank observes the same global sum.
	for i := range totals {
		require.NoError(t, errs[i])
		assert.Equal(t, 10.0, totals[i])
	}
}

func TestLocalGroupSupportsRepeatedRounds(t *testing.T) {
	ranks := NewLocalGroup(2)

	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		totals := make([]float64, 2)
		for i, r := range ranks {
			wg.Add(1)
			go func(i int, r *LocalRank) {
				defer wg.Done()
				totals[i], _ = r.AllReduceSum(context.Background(), float64(round))
			}(i, r)
		}
		wg.Wait()
		assert.Equal(t, float64(2*round), totals[0])
		assert.Equal(t, totals[0], totals[1])
	}
}

func TestAllReduceSumHonorsContextWhenRankMissing(t *testing.T) {
	ranks := NewLocalGroup(2)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Only rank 0 reaches the barrier; the context bounds the stall.
	_, err := ranks[0].AllReduceSum(ctx, 1.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAllReduceSumRejectsDoubleContribution(t *testing.T) {
	ranks := NewLocalGroup(2)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Rank 0 gives up on an open round; contributing to it again is a
	// caller bug, not a new round.
	_, err := ranks[0].AllReduceSum(ctx, 1.0)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = ranks[0].AllReduceSum(context.Background(), 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contributed twice")
}
