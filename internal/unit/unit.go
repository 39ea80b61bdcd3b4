// Package unit defines the execution-unit contract and its three variants:
// in-process simulated units, GPU-bound simulated units and remote
// REST-backed units.
//
// The set of variants is closed and known at design time; dispatch code
// treats every unit through the same Run capability and never type-switches
// on the concrete kind.
package unit

import (
	"context"

	"github.com/vk/qpugridgo/internal/kernel"
)

// Kind identifies the backend variant of an execution unit.
type Kind int

const (
	// LocalSim is an in-process simulated unit.
	LocalSim Kind = iota
	// GPUSim is a simulated unit pinned to one GPU device.
	GPUSim
	// Remote is a network-hosted unit reached over the REST transport.
	Remote
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case LocalSim:
		return "local-sim"
	case GPUSim:
		return "gpu-sim"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// Unit is a single addressable endpoint capable of running one circuit and
// returning either a sampled distribution or an expectation value. A unit is
// a single logical executor: the dispatcher serializes submissions to it.
type Unit interface {
	// Index is the unit's stable logical index, assigned at registry build
	// time and unique within a run.
	Index() int
	// Kind reports the backend variant.
	Kind() Kind
	// Backend reports the simulator backend identity (e.g. "statevector").
	Backend() string
	// Endpoint reports the remote address, or "" for local units.
	Endpoint() string
	// Run executes one invocation to completion.
	Run(ctx context.Context, inv kernel.Invocation) (kernel.Result, error)
}

// Executor is the opaque simulator collaborator local units delegate to.
// Concrete numerical backends (state-vector, tensor-network) live outside
// this platform; internal/sim carries a deterministic reference
// implementation.
type Executor interface {
	Run(ctx context.Context, backend string, device int, inv kernel.Invocation) (kernel.Result, error)
}
