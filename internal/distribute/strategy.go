// Package distribute assigns decomposed Hamiltonian sub-tasks to execution
// units and aggregates partial results into the final expectation value.
//
// Two interchangeable strategies exist, chosen once per run: Thread
// (single node, shared memory) and Rank (multi-process, works across
// nodes). They are never mixed within one evaluation.
package distribute

import (
	"context"
	"fmt"

	"github.com/vk/qpugridgo/internal/dispatch"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/pauli"
)

// Strategy evaluates the expectation value of a Hamiltonian against the
// state produced by the ansatz invocation.
type Strategy interface {
	Observe(ctx context.Context, d *dispatch.Dispatcher, h pauli.Hamiltonian, ansatz kernel.Invocation) (float64, error)
}

// expectationOf narrows a sub-task result to its expectation value.
func expectationOf(task pauli.SubTask, res kernel.Result) (float64, error) {
	exp, ok := res.(kernel.Expectation)
	if !ok {
		return 0, fmt.Errorf("sub-task %d (%s) returned a non-expectation result", task.Ordinal, task.Invocation.Observable)
	}
	return exp.Value, nil
}
