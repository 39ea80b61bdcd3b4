// Package config loads and validates the platform run configuration: which
// execution-unit kind to use, how many, where remote units live and which
// distribution strategy decomposed work follows.
package config

import (
	"github.com/vk/qpugridgo/internal/qerr"
)

// Distribution selects how decomposed Hamiltonian sub-tasks are spread over
// execution units.
type Distribution string

const (
	// DistributionThread fans sub-tasks out across local units on a shared-
	// memory thread pool.
	DistributionThread Distribution = "thread"
	// DistributionMPI partitions sub-tasks across ranks of an external
	// multi-process coordination layer.
	DistributionMPI Distribution = "mpi"
)

// Platform is the decoded `platform` block of a run configuration plus
// process-wide state captured once at load time. It is immutable after
// Load returns; nothing deeper in the stack reads flags or environment.
type Platform struct {
	// Backend selects the unit kind: "local-sim", "gpu-sim" or "remote".
	Backend string `hcl:"backend,optional"`
	// Distribution selects the strategy: "thread" or "mpi".
	Distribution string `hcl:"distribution,optional"`
	// AutoLaunch spawns this many local unit-server processes and registers
	// their endpoints. Mutually exclusive with URLs.
	AutoLaunch int `hcl:"auto_launch,optional"`
	// URLs lists existing remote unit endpoints to register instead of
	// spawning any.
	URLs []string `hcl:"urls,optional"`
	// BackendNames selects the simulator per unit. A single entry applies
	// to every unit; otherwise entries match units positionally.
	BackendNames []string `hcl:"backend_names,optional"`
	// UnitCount caps or overrides the number of local simulated units.
	UnitCount int `hcl:"unit_count,optional"`

	// DeviceCount is the number of visible GPU devices, captured from the
	// environment exactly once at load time.
	DeviceCount int
}

// Backend kinds recognized by the registry.
const (
	BackendLocalSim = "local-sim"
	BackendGPUSim   = "gpu-sim"
	BackendRemote   = "remote"
)

// DefaultBackendName is the simulator used when the configuration names
// none.
const DefaultBackendName = "statevector"

func (p *Platform) applyDefaults() {
	if p.Backend == "" {
		p.Backend = BackendLocalSim
	}
	if p.Distribution == "" {
		p.Distribution = string(DistributionThread)
	}
}

// Validate rejects malformed or inconsistent setups. All violations are
// Configuration errors, surfaced before any kernel is dispatched.
func (p *Platform) Validate() error {
	switch p.Backend {
	case BackendLocalSim, BackendGPUSim, BackendRemote:
	default:
		return qerr.Newf(qerr.Configuration, "unknown backend %q (want local-sim, gpu-sim or remote)", p.Backend)
	}

	switch Distribution(p.Distribution) {
	case DistributionThread, DistributionMPI:
	default:
		return qerr.Newf(qerr.Configuration, "unknown distribution %q (want thread or mpi)", p.Distribution)
	}

	if p.AutoLaunch < 0 {
		return qerr.Newf(qerr.Configuration, "auto_launch must be non-negative, got %d", p.AutoLaunch)
	}
	if p.UnitCount < 0 {
		return qerr.Newf(qerr.Configuration, "unit_count must be non-negative, got %d", p.UnitCount)
	}
	if p.AutoLaunch > 0 && len(p.URLs) > 0 {
		return qerr.New(qerr.Configuration, "auto_launch and urls are mutually exclusive")
	}
	if len(p.URLs) > 0 && p.Backend != BackendRemote {
		return qerr.Newf(qerr.Configuration, "urls require backend %q, got %q", BackendRemote, p.Backend)
	}
	if p.Backend == BackendRemote && len(p.URLs) == 0 && p.AutoLaunch == 0 {
		return qerr.New(qerr.Configuration, "remote backend needs urls or auto_launch")
	}

	// A single backend name applies to all units; otherwise names match
	// units positionally and the lengths must agree.
	if n := len(p.BackendNames); n > 1 {
		var units int
		switch {
		case len(p.URLs) > 0:
			units = len(p.URLs)
		case p.AutoLaunch > 0:
			units = p.AutoLaunch
		default:
			units = p.localUnitCount()
		}
		if n != units {
			return qerr.Newf(qerr.Configuration,
				"backend_names has %d entries for %d units (use one entry or match positionally)", n, units)
		}
	}

	return nil
}

// localUnitCount resolves the number of local simulated units before any
// remote discovery: the override when set, the visible device count for
// gpu-sim, one otherwise.
func (p *Platform) localUnitCount() int {
	if p.UnitCount > 0 {
		return p.UnitCount
	}
	if p.Backend == BackendGPUSim {
		if p.DeviceCount > 0 {
			return p.DeviceCount
		}
		return 1
	}
	return 1
}

// LocalUnitCount is the resolved number of local simulated units.
func (p *Platform) LocalUnitCount() int {
	return p.localUnitCount()
}

// BackendNameFor returns the simulator identity for unit i under the
// positional matching rules.
func (p *Platform) BackendNameFor(i int) string {
	switch len(p.BackendNames) {
	case 0:
		return DefaultBackendName
	case 1:
		return p.BackendNames[0]
	default:
		return p.BackendNames[i]
	}
}

// WithEndpoints returns a copy of the configuration rewritten to target the
// given remote endpoints. Used after auto-launch to register the spawned
// servers.
func (p *Platform) WithEndpoints(endpoints []string) *Platform {
	clone := *p
	clone.Backend = BackendRemote
	clone.AutoLaunch = 0
	clone.URLs = append([]string(nil), endpoints...)
	return &clone
}
