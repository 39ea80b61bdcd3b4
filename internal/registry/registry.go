// Package registry enumerates the execution units available to a run and
// assigns each a stable logical index.
//
// The registry is built exactly once per run, is read-only afterwards and
// is safely shared across all dispatch goroutines. Unit i refers to the
// same physical or simulated device for the whole run.
package registry

import (
	"context"

	"github.com/vk/qpugridgo/internal/config"
	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/transport"
	"github.com/vk/qpugridgo/internal/unit"
)

// Registry holds the execution units of one run in index order.
type Registry struct {
	units []unit.Unit
}

// Build discovers or constructs the unit set for the configured backend:
// one remote unit per URL, one GPU unit per visible device, or the
// configured count of local simulated units. Index assignment is
// deterministic: URL order, device ordinal order, or counting order.
func Build(ctx context.Context, p *config.Platform, exec unit.Executor, client *transport.Client) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	var units []unit.Unit
	switch p.Backend {
	case config.BackendRemote:
		if client == nil {
			return nil, qerr.New(qerr.Configuration, "remote backend requires a transport client")
		}
		for i, url := range p.URLs {
			units = append(units, unit.NewRemote(i, p.BackendNameFor(i), url, client))
		}

	case config.BackendGPUSim:
		if exec == nil {
			return nil, qerr.New(qerr.Configuration, "gpu-sim backend requires an executor")
		}
		for i := 0; i < p.LocalUnitCount(); i++ {
			units = append(units, unit.NewGPU(i, i, p.BackendNameFor(i), exec))
		}

	case config.BackendLocalSim:
		if exec == nil {
			return nil, qerr.New(qerr.Configuration, "local-sim backend requires an executor")
		}
		for i := 0; i < p.LocalUnitCount(); i++ {
			units = append(units, unit.NewLocal(i, p.BackendNameFor(i), exec))
		}
	}

	logger.Debug("Unit registry built.", "backend", p.Backend, "count", len(units))
	return &Registry{units: units}, nil
}

// Count returns the number of available execution units.
func (r *Registry) Count() int {
	return len(r.units)
}

// Get returns the unit at index, or OutOfRange when index >= Count().
func (r *Registry) Get(index int) (unit.Unit, error) {
	if index < 0 || index >= len(r.units) {
		return nil, qerr.Newf(qerr.OutOfRange, "unit index %d, registry has %d units", index, len(r.units)).WithUnit(index)
	}
	return r.units[index], nil
}

// Units returns the units in index order. The returned slice must not be
// mutated.
func (r *Registry) Units() []unit.Unit {
	return r.units
}
