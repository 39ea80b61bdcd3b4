package distribute

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/qpugridgo/internal/comm"
	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/dispatch"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/pauli"
)

// Rank partitions sub-tasks across processes: sub-task k belongs to rank
// k mod rank_count, and each rank sub-dispatches its share across its own
// visible units with the same modulo rule. Partial sums combine across
// ranks in rank-ascending order via a blocking all-reduce.
//
// Within a rank, floating-point summation follows sub-task order, and the
// cross-rank reduction follows rank order. Bit-exact reproducibility across
// differing rank counts is therefore not guaranteed (the association order
// changes); within a fixed topology the result is deterministic.
type Rank struct {
	Comm comm.Communicator
}

// Observe evaluates this rank's share and joins the global reduction.
// Every participating rank must call Observe with the same Hamiltonian and
// ansatz; the identity offset is applied once on every rank after the
// reduction, so all ranks return the same value.
func (s Rank) Observe(ctx context.Context, d *dispatch.Dispatcher, h pauli.Hamiltonian, ansatz kernel.Invocation) (float64, error) {
	logger := ctxlog.FromContext(ctx)

	tasks, offset := pauli.Decompose(h, ansatz)
	rank, size := s.Comm.Rank(), s.Comm.Size()

	var mine []pauli.SubTask
	for _, task := range tasks {
		if task.Ordinal%size == rank {
			mine = append(mine, task)
		}
	}
	logger.Debug("Rank strategy dispatching local share.", "rank", rank, "size", size, "localTasks", len(mine), "units", d.UnitCount())

	values := make([]float64, len(mine))
	n := d.UnitCount()
	var g errgroup.Group
	var mu sync.Mutex

	var dispatchErr error
	for i, task := range mine {
		handle, err := d.ExecuteAsync(ctx, i%n, task.Invocation)
		if err != nil {
			dispatchErr = fmt.Errorf("rank %d dispatching sub-task %d: %w", rank, task.Ordinal, err)
			break
		}
		g.Go(func() error {
			res, err := handle.Resolve(ctx)
			if err != nil {
				return fmt.Errorf("rank %d sub-task %d (%s): %w", rank, task.Ordinal, task.Invocation.Observable, err)
			}
			value, err := expectationOf(task, res)
			if err != nil {
				return err
			}
			mu.Lock()
			values[i] = value
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = dispatchErr
	}
	if err != nil {
		// The failed rank still reaches the barrier so the others do not
		// stall. It contributes NaN, which poisons the global sum and lets
		// every other rank observe that the aggregation is invalid.
		if _, reduceErr := s.Comm.AllReduceSum(ctx, math.NaN()); reduceErr != nil {
			return 0, fmt.Errorf("%w (reduction also failed: %v)", err, reduceErr)
		}
		return 0, err
	}

	// Partial sum in sub-task order.
	var partial float64
	for i, task := range mine {
		partial += real(task.Coefficient) * values[i]
	}

	total, err := s.Comm.AllReduceSum(ctx, partial)
	if err != nil {
		return 0, fmt.Errorf("rank %d reduction: %w", rank, err)
	}
	if math.IsNaN(total) {
		return 0, fmt.Errorf("rank %d: another rank reported a sub-task failure", rank)
	}
	return offset + total, nil
}
