package dispatch

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vk/qpugridgo/internal/kernel"
)

// ErrResolved is returned on a second resolution attempt. A handle resolves
// exactly once; nothing in the language enforces that, so the handle does.
var ErrResolved = errors.New("dispatch: async handle already resolved")

// Handle is an opaque future reference to one in-flight invocation. It is
// owned by the caller until resolved.
type Handle struct {
	id        string
	unitIndex int

	done      chan struct{}
	result    kernel.Result
	err       error
	consumed  atomic.Bool
	abandoned atomic.Bool
}

func newHandle(unitIndex int) *Handle {
	return &Handle{
		id:        uuid.NewString(),
		unitIndex: unitIndex,
		done:      make(chan struct{}),
	}
}

// ID returns the handle's job identifier.
func (h *Handle) ID() string { return h.id }

// UnitIndex returns the unit the invocation was assigned to.
func (h *Handle) UnitIndex() int { return h.unitIndex }

// Resolve blocks the caller until the underlying unit completes, then
// returns its result. It may be called exactly once; further calls return
// ErrResolved. A context cancellation abandons the wait but the unit keeps
// running; the handle stays consumed.
func (h *Handle) Resolve(ctx context.Context) (kernel.Result, error) {
	if !h.consumed.CompareAndSwap(false, true) {
		return nil, ErrResolved
	}
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Abandon marks the handle's result as discardable. The unit's execution
// slot stays occupied until the in-flight invocation completes; cleanup is
// best effort only.
func (h *Handle) Abandon() {
	h.abandoned.Store(true)
	h.consumed.Store(true)
}

// complete publishes the outcome. Called exactly once by the unit worker.
func (h *Handle) complete(result kernel.Result, err error) {
	h.result = result
	h.err = err
	close(h.done)
}
