package comm

import (
	"context"
	"fmt"
	"sync"
)

// localHub coordinates one in-process rank group. Reductions proceed in
// rounds: a round completes when every rank has contributed, and every
// waiter receives the same total.
type localHub struct {
	mu      sync.Mutex
	size    int
	vals    []float64
	present []bool
	arrived int
	waiters []chan float64
}

// LocalRank is one member of an in-process rank group.
type LocalRank struct {
	rank int
	hub  *localHub
}

// NewLocalGroup creates an in-process group of n ranks sharing one
// reduction hub. Each returned communicator belongs to one goroutine.
func NewLocalGroup(n int) []*LocalRank {
	hub := &localHub{
		size:    n,
		vals:    make([]float64, n),
		present: make([]bool, n),
	}
	ranks := make([]*LocalRank, n)
	for i := range ranks {
		ranks[i] = &LocalRank{rank: i, hub: hub}
	}
	return ranks
}

func (r *LocalRank) Rank() int { return r.rank }
func (r *LocalRank) Size() int { return r.hub.size }

// AllReduceSum blocks until all ranks of the group have contributed to the
// current round, then returns the sum combined in rank-ascending order.
func (r *LocalRank) AllReduceSum(ctx context.Context, v float64) (float64, error) {
	hub := r.hub
	resultCh := make(chan float64, 1)

	hub.mu.Lock()
	if hub.present[r.rank] {
		hub.mu.Unlock()
		return 0, fmt.Errorf("rank %d contributed twice to the same reduction round", r.rank)
	}
	hub.vals[r.rank] = v
	hub.present[r.rank] = true
	hub.arrived++
	hub.waiters = append(hub.waiters, resultCh)

	if hub.arrived == hub.size {
		// Last arrival closes the round: sum in rank order and publish.
		var total float64
		for i := 0; i < hub.size; i++ {
			total += hub.vals[i]
		}
		for _, w := range hub.waiters {
			w <- total
		}
		hub.arrived = 0
		hub.waiters = nil
		for i := range hub.present {
			hub.present[i] = false
		}
	}
	hub.mu.Unlock()

	select {
	case total := <-resultCh:
		return total, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
