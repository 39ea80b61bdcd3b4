// Package kernel defines the immutable request and result types for one
// quantum-kernel execution: the invocation (code reference, encoded
// arguments, shot count, optional observable) and the byte-exact argument
// buffer codec.
package kernel

// CodeRef is an opaque handle to a compiled kernel. The compiler that
// produces it is an external collaborator; the platform only routes it.
type CodeRef string

// Invocation is one request to run a specific compiled kernel. It is
// constructed once per call site and never mutated afterwards.
type Invocation struct {
	// Kernel identifies the compiled circuit to run.
	Kernel CodeRef
	// Args is the encoded argument buffer, produced by ArgEncoder.
	Args []byte
	// Shots is the number of sampling runs. Zero means a state-based
	// expectation-value execution.
	Shots int
	// Observable is the Pauli word to measure, in string form ("XXIZ").
	// Empty for plain sampling.
	Observable string
}

// Sampling reports whether this invocation requests sampled bitstrings
// rather than an expectation value.
func (inv Invocation) Sampling() bool {
	return inv.Shots > 0
}

// WithObservable returns a copy of the invocation measuring the given
// Pauli word.
func (inv Invocation) WithObservable(word string) Invocation {
	inv.Observable = word
	return inv
}
