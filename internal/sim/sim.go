// Package sim provides a deterministic reference executor standing in for
// the real simulator backends, which are external collaborators of the
// platform. Results are pure functions of the invocation and backend
// identity, so repeated runs on any topology agree exactly.
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/vk/qpugridgo/internal/kernel"
)

// Executor is a deterministic in-process simulator. The zero value is
// usable; FailKernels lists code references that report a backend failure,
// for exercising error paths.
type Executor struct {
	// FailKernels maps a code reference to the failure message its
	// execution reports.
	FailKernels map[kernel.CodeRef]string
}

// New creates a reference executor.
func New() *Executor {
	return &Executor{}
}

// seed derives a stable seed from everything that identifies the
// computation. Device ordinal is deliberately excluded: the same circuit on
// a different device of the same backend must produce the same statistics.
func seed(backend string, inv kernel.Invocation) uint64 {
	h := fnv.New64a()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(inv.Kernel))
	h.Write([]byte{0})
	h.Write(inv.Args)
	h.Write([]byte{0})
	h.Write([]byte(inv.Observable))
	return h.Sum64()
}

// Run executes the invocation and returns sampled counts or an expectation
// value depending on the requested shape.
func (e *Executor) Run(ctx context.Context, backend string, device int, inv kernel.Invocation) (kernel.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg, ok := e.FailKernels[inv.Kernel]; ok {
		return nil, fmt.Errorf("simulator: %s", msg)
	}
	if inv.Sampling() {
		return e.sample(backend, inv), nil
	}
	return e.observe(backend, inv), nil
}

// sample distributes exactly inv.Shots observations over bitstrings of the
// circuit's width. Width comes from the observable when present, otherwise
// a small default register.
func (e *Executor) sample(backend string, inv kernel.Invocation) kernel.Samples {
	width := len(inv.Observable)
	if width == 0 {
		width = 2
	}
	if width > 10 {
		width = 10
	}
	s := seed(backend, inv)
	rng := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))

	counts := make(map[string]uint64)
	for shot := 0; shot < inv.Shots; shot++ {
		bits := make([]byte, width)
		for i := range bits {
			bits[i] = '0' + byte(rng.UintN(2))
		}
		counts[string(bits)]++
	}
	return kernel.Samples{Counts: counts}
}

// observe returns a stable expectation value in [-1, 1].
func (e *Executor) observe(backend string, inv kernel.Invocation) kernel.Expectation {
	s := seed(backend, inv)
	return kernel.Expectation{Value: math.Cos(float64(s%100000) / 100000 * 2 * math.Pi)}
}
