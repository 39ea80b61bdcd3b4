package pauli

import (
	"github.com/vk/qpugridgo/internal/kernel"
)

// SubTask is one independent circuit execution produced by decomposing a
// Hamiltonian: measuring one non-identity term against the ansatz state.
type SubTask struct {
	// Ordinal is the sub-task's position in decomposition order. It matches
	// the Hamiltonian's term order (skipping identity terms) and is the key
	// for modulo unit assignment.
	Ordinal int
	// Coefficient is the term weight applied during aggregation.
	Coefficient complex128
	// Invocation is the fully formed kernel invocation for this term.
	Invocation kernel.Invocation
}

// Decompose splits a Hamiltonian expectation-value request into one
// sub-task per non-identity term, in term order. Identity terms contribute
// only their real coefficient to the returned constant offset and are never
// executed.
func Decompose(h Hamiltonian, ansatz kernel.Invocation) ([]SubTask, float64) {
	var tasks []SubTask
	var offset float64
	for _, t := range h.Terms {
		if t.Word.IsIdentity() {
			offset += real(t.Coefficient)
			continue
		}
		tasks = append(tasks, SubTask{
			Ordinal:     len(tasks),
			Coefficient: t.Coefficient,
			Invocation:  ansatz.WithObservable(string(t.Word)),
		})
	}
	return tasks, offset
}
