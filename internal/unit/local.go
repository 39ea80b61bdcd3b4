package unit

import (
	"context"
	"errors"

	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/qerr"
)

// wrapExecErr stamps unclassified executor failures as BackendFailure with
// the unit index. Classified platform errors and the caller's context
// cancellation pass through.
func wrapExecErr(err error, scope string, index int) error {
	if _, classified := qerr.KindOf(err); classified {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return qerr.Wrap(qerr.BackendFailure, err, scope).WithUnit(index)
}

// Local is an in-process simulated unit.
type Local struct {
	index   int
	backend string
	exec    Executor
}

// NewLocal builds a local simulated unit delegating to exec.
func NewLocal(index int, backend string, exec Executor) *Local {
	return &Local{index: index, backend: backend, exec: exec}
}

func (u *Local) Index() int       { return u.index }
func (u *Local) Kind() Kind       { return LocalSim }
func (u *Local) Backend() string  { return u.backend }
func (u *Local) Endpoint() string { return "" }

// Run executes the invocation on the in-process simulator. Executor
// failures surface as BackendFailure with the unit index attached.
func (u *Local) Run(ctx context.Context, inv kernel.Invocation) (kernel.Result, error) {
	res, err := u.exec.Run(ctx, u.backend, -1, inv)
	if err != nil {
		return nil, wrapExecErr(err, "local simulator", u.index)
	}
	return res, nil
}

// GPU is a simulated unit pinned to one GPU device. Device assignment is
// fixed at registry build time; the executor receives the device ordinal
// with every run.
type GPU struct {
	index   int
	device  int
	backend string
	exec    Executor
}

// NewGPU builds a GPU-bound simulated unit pinned to the given device.
func NewGPU(index, device int, backend string, exec Executor) *GPU {
	return &GPU{index: index, device: device, backend: backend, exec: exec}
}

func (u *GPU) Index() int       { return u.index }
func (u *GPU) Kind() Kind       { return GPUSim }
func (u *GPU) Backend() string  { return u.backend }
func (u *GPU) Endpoint() string { return "" }

// Device returns the pinned GPU device ordinal.
func (u *GPU) Device() int { return u.device }

func (u *GPU) Run(ctx context.Context, inv kernel.Invocation) (kernel.Result, error) {
	res, err := u.exec.Run(ctx, u.backend, u.device, inv)
	if err != nil {
		return nil, wrapExecErr(err, "gpu simulator", u.index)
	}
	return res, nil
}
