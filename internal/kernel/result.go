package kernel

// Result is the outcome of one kernel execution. It is a closed variant:
// the only implementations are Samples and Expectation.
type Result interface {
	isResult()
}

// Samples is a sampled bitstring distribution. Counts map each observed
// bitstring to its nonnegative occurrence count; counts sum to the total
// shot count of the invocation.
type Samples struct {
	Counts map[string]uint64
}

func (Samples) isResult() {}

// Total returns the summed occurrence count over all bitstrings.
func (s Samples) Total() uint64 {
	var total uint64
	for _, c := range s.Counts {
		total += c
	}
	return total
}

// Expectation is a real-scalar expectation value.
type Expectation struct {
	Value float64
}

func (Expectation) isResult() {}
