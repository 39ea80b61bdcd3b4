// Package pauli models multi-term Pauli Hamiltonians and their
// decomposition into independent per-term kernel invocations.
package pauli

import (
	"fmt"
	"strings"

	"github.com/vk/qpugridgo/internal/qerr"
)

// Word is an ordered sequence of single-qubit Pauli operators, one per
// target qubit index, in string form. Valid characters are I, X, Y and Z.
type Word string

// ParseWord validates s as a Pauli word.
func ParseWord(s string) (Word, error) {
	if s == "" {
		return "", qerr.New(qerr.Configuration, "empty pauli word")
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'I', 'X', 'Y', 'Z':
		default:
			return "", qerr.Newf(qerr.Configuration, "invalid pauli operator %q at qubit %d in %q", s[i], i, s)
		}
	}
	return Word(s), nil
}

// Qubits returns the number of qubit indices the word spans.
func (w Word) Qubits() int {
	return len(w)
}

// IsIdentity reports whether every operator in the word is the identity.
func (w Word) IsIdentity() bool {
	return strings.Trim(string(w), "I") == ""
}

// Term is one weighted Pauli word whose expectation must be measured
// separately.
type Term struct {
	Coefficient complex128
	Word        Word
}

// Hamiltonian is an ordered set of terms. Term order is load-bearing: it
// fixes sub-task ordering during decomposition and the aggregation order of
// partial sums.
type Hamiltonian struct {
	Terms []Term
}

// NewHamiltonian validates each word and builds a Hamiltonian preserving
// term order.
func NewHamiltonian(terms ...Term) (Hamiltonian, error) {
	for i, t := range terms {
		if _, err := ParseWord(string(t.Word)); err != nil {
			return Hamiltonian{}, qerr.Wrap(qerr.Configuration, err, fmt.Sprintf("term %d", i))
		}
	}
	return Hamiltonian{Terms: terms}, nil
}
