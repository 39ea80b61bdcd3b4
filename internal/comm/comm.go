// Package comm defines the multi-process coordination contract the
// rank-based distribution strategy depends on: rank identity, rank count
// and a blocking all-reduce.
//
// A real MPI (or equivalent) binding is an external collaborator supplied
// by the embedding process. The package carries Single for one-process runs
// and an in-process group used by tests and single-host multi-rank runs.
package comm

import "context"

// Communicator is one participant process (rank) in a rank-based run.
type Communicator interface {
	// Rank is this participant's identity, in [0, Size).
	Rank() int
	// Size is the number of participating ranks.
	Size() int
	// AllReduceSum is a blocking barrier: every rank contributes a partial
	// value and every rank receives the global sum. Partial values combine
	// in rank-ascending order. A rank that never reaches the barrier stalls
	// the others; the context bounds the wait.
	AllReduceSum(ctx context.Context, v float64) (float64, error)
}

// Single is the trivial communicator of a one-process run.
type Single struct{}

func (Single) Rank() int { return 0 }
func (Single) Size() int { return 1 }

func (Single) AllReduceSum(ctx context.Context, v float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v, nil
}
