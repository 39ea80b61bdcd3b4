package pauli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qpugridgo/internal/kernel"
)

func TestDecomposeProducesOneSubTaskPerNonIdentityTerm(t *testing.T) {
	h, err := NewHamiltonian(
		Term{Coefficient: 5.9, Word: "II"},
		Term{Coefficient: -2.1, Word: "XX"},
		Term{Coefficient: 0.21, Word: "YY"},
		Term{Coefficient: 0.5, Word: "ZI"},
	)
	require.NoError(t, err)

	ansatz := kernel.Invocation{Kernel: "ansatz", Args: kernel.NewArgEncoder().Float64(0.59).Bytes()}
	tasks, offset := Decompose(h, ansatz)

	require.Len(t, tasks, 3)
	assert.Equal(t, 5.9, offset)

	// Sub-task ordering matches term order, identity skipped.
	assert.Equal(t, "XX", tasks[0].Invocation.Observable)
	assert.Equal(t, "YY", tasks[1].Invocation.Observable)
	assert.Equal(t, "ZI", tasks[2].Invocation.Observable)
	for k, task := range tasks {
		assert.Equal(t, k, task.Ordinal)
		assert.Equal(t, kernel.CodeRef("ansatz"), task.Invocation.Kernel)
		assert.Equal(t, ansatz.Args, task.Invocation.Args)
	}
}

func TestDecomposeIdentityOnlyHamiltonian(t *testing.T) {
	h, err := NewHamiltonian(Term{Coefficient: 3.25, Word: "III"})
	require.NoError(t, err)

	tasks, offset := Decompose(h, kernel.Invocation{Kernel: "ansatz"})
	assert.Empty(t, tasks)
	assert.Equal(t, 3.25, offset)
}

func TestDecomposeDoesNotMutateAnsatz(t *testing.T) {
	h, err := NewHamiltonian(Term{Coefficient: 1, Word: "Z"})
	require.NoError(t, err)

	ansatz := kernel.Invocation{Kernel: "ansatz", Shots: 0}
	Decompose(h, ansatz)
	assert.Empty(t, ansatz.Observable)
}

func TestParseWordRejectsInvalidOperators(t *testing.T) {
	_, err := ParseWord("XQZ")
	require.Error(t, err)

	_, err = ParseWord("")
	require.Error(t, err)
}

func TestIsIdentity(t *testing.T) {
	assert.True(t, Word("III").IsIdentity())
	assert.False(t, Word("IXI").IsIdentity())
}
