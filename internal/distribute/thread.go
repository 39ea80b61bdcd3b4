package distribute

import (
	"context"
	"fmt"

	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/dispatch"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/pauli"
)

// Thread fans sub-tasks out across local units: sub-task k goes to unit
// k mod unit_count as a parallel asynchronous dispatch. Handles resolve in
// assignment order and partial values sum in term order, so the final value
// is deterministic regardless of completion order. No fairness between
// in-flight sub-tasks is guaranteed beyond that.
type Thread struct{}

// Observe evaluates the Hamiltonian on the dispatcher's units. A single
// failed sub-task aborts the whole aggregation; remaining handles are
// abandoned (their units finish in the background).
func (Thread) Observe(ctx context.Context, d *dispatch.Dispatcher, h pauli.Hamiltonian, ansatz kernel.Invocation) (float64, error) {
	logger := ctxlog.FromContext(ctx)

	tasks, offset := pauli.Decompose(h, ansatz)
	if len(tasks) == 0 {
		return offset, nil
	}

	n := d.UnitCount()
	logger.Debug("Thread strategy dispatching sub-tasks.", "tasks", len(tasks), "units", n)

	handles := make([]*dispatch.Handle, len(tasks))
	for k, task := range tasks {
		handle, err := d.ExecuteAsync(ctx, k%n, task.Invocation)
		if err != nil {
			abandonFrom(handles, 0)
			return 0, fmt.Errorf("dispatching sub-task %d: %w", k, err)
		}
		handles[k] = handle
	}

	sum := offset
	for k, task := range tasks {
		res, err := handles[k].Resolve(ctx)
		if err != nil {
			abandonFrom(handles, k+1)
			return 0, fmt.Errorf("sub-task %d (%s): %w", k, task.Invocation.Observable, err)
		}
		value, err := expectationOf(task, res)
		if err != nil {
			abandonFrom(handles, k+1)
			return 0, err
		}
		sum += real(task.Coefficient) * value
	}
	return sum, nil
}

func abandonFrom(handles []*dispatch.Handle, start int) {
	for _, h := range handles[start:] {
		if h != nil {
			h.Abandon()
		}
	}
}
