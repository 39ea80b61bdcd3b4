package app

import (
	"context"
	"fmt"

	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/pauli"
)

// Observe evaluates the expectation value of the Hamiltonian against the
// state produced by the ansatz invocation, using the configured
// distribution strategy.
func (a *App) Observe(ctx context.Context, h pauli.Hamiltonian, ansatz kernel.Invocation) (float64, error) {
	if a.disp == nil {
		return 0, fmt.Errorf("platform not started")
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.strategy.Observe(ctx, a.disp, h, ansatz)
}

// Sample runs one sampling invocation on the given unit, blocking until
// the distribution is available.
func (a *App) Sample(ctx context.Context, unitIndex int, inv kernel.Invocation) (kernel.Result, error) {
	if a.disp == nil {
		return nil, fmt.Errorf("platform not started")
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.disp.Execute(ctx, unitIndex, inv)
}

// Run executes the application lifecycle: serve mode hosts a unit server;
// platform mode starts the units and runs the built-in probe.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if a.cfg.Serve {
		return a.runServe(ctx)
	}

	if err := a.Start(ctx); err != nil {
		a.Stop()
		return err
	}
	defer a.Stop()

	return a.probe(ctx)
}

// probe exercises every registered unit with a short sampling run and one
// distributed expectation evaluation, then reports the results. It doubles
// as the smoke test for a freshly configured deployment.
func (a *App) probe(ctx context.Context) error {
	a.logger.Info("🚀 Probing execution units...")

	probeInv := kernel.Invocation{
		Kernel:     "probe",
		Shots:      100,
		Observable: "ZZ",
	}
	for i := 0; i < a.reg.Count(); i++ {
		res, err := a.Sample(ctx, i, probeInv)
		if err != nil {
			return fmt.Errorf("probing unit %d: %w", i, err)
		}
		samples, ok := res.(kernel.Samples)
		if !ok {
			return fmt.Errorf("probing unit %d: unexpected result type", i)
		}
		a.logger.Info("Unit responded.", "unitIndex", i, "distinctBitstrings", len(samples.Counts), "shots", samples.Total())
	}

	h, err := pauli.NewHamiltonian(
		pauli.Term{Coefficient: 1.0, Word: "II"},
		pauli.Term{Coefficient: 0.5, Word: "ZZ"},
		pauli.Term{Coefficient: -0.25, Word: "XX"},
	)
	if err != nil {
		return err
	}
	value, err := a.Observe(ctx, h, kernel.Invocation{Kernel: "probe"})
	if err != nil {
		return fmt.Errorf("probe observation failed: %w", err)
	}
	a.logger.Info("🏁 Probe complete.", "expectation", value)
	fmt.Fprintf(a.outW, "probe expectation: %v\n", value)
	return nil
}
