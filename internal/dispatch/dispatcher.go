// Package dispatch runs kernel invocations on execution units, inline or as
// detachable asynchronous tasks.
//
// Each unit is a single logical executor: one worker goroutine per unit
// drains a FIFO queue, so submissions targeting the same unit index run
// serialized in submission order while submissions targeting different
// units run fully parallel.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/registry"
)

// ErrClosed is returned when submitting to a dispatcher after Close.
var ErrClosed = errors.New("dispatch: dispatcher closed")

type job struct {
	ctx    context.Context
	inv    kernel.Invocation
	handle *Handle
}

// queue is an unbounded FIFO so ExecuteAsync never blocks the submitter.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []*job
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(j *job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.jobs = append(q.jobs, j)
	q.cond.Signal()
	return nil
}

// pop blocks until a job is available or the queue is closed and drained.
func (q *queue) pop() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Dispatcher routes invocations to execution units. It borrows the unit
// registry and must not outlive it.
type Dispatcher struct {
	reg    *registry.Registry
	queues []*queue
	wg     sync.WaitGroup
}

// New creates a dispatcher and starts one worker per registered unit. The
// context carries the logger used by the workers.
func New(ctx context.Context, reg *registry.Registry) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		queues: make([]*queue, reg.Count()),
	}
	for i := range d.queues {
		d.queues[i] = newQueue()
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	return d
}

// worker is the serial execution loop for one unit.
func (d *Dispatcher) worker(ctx context.Context, unitIndex int) {
	defer d.wg.Done()
	logger := ctxlog.FromContext(ctx).With("unitIndex", unitIndex)
	logger.Debug("Unit worker started.")

	u, err := d.reg.Get(unitIndex)
	if err != nil {
		// Queues exist only for registered indices; Get cannot fail here.
		panic(err)
	}

	for {
		j, ok := d.queues[unitIndex].pop()
		if !ok {
			break
		}
		jobLogger := logger.With("jobID", j.handle.ID(), "kernel", string(j.inv.Kernel))
		jobLogger.Debug("Worker picked up invocation.")

		res, err := u.Run(j.ctx, j.inv)
		if err != nil {
			jobLogger.Debug("Invocation failed.", "error", err)
			j.handle.complete(nil, classify(err, unitIndex))
			continue
		}
		jobLogger.Debug("Invocation succeeded.")
		j.handle.complete(res, nil)
	}
	logger.Debug("Unit worker finished.")
}

// classify stamps unclassified backend errors with BackendFailure and the
// unit index. Already-classified platform errors and the caller's own
// context cancellation pass through.
func classify(err error, unitIndex int) error {
	if _, ok := qerr.KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return qerr.Wrap(qerr.BackendFailure, err, "unit execution").WithUnit(unitIndex)
}

// UnitCount reports the number of units the dispatcher routes to.
func (d *Dispatcher) UnitCount() int {
	return d.reg.Count()
}

// ExecuteAsync schedules the invocation on the unit's execution context and
// returns immediately with an awaitable handle. It never blocks the
// submitter.
func (d *Dispatcher) ExecuteAsync(ctx context.Context, unitIndex int, inv kernel.Invocation) (*Handle, error) {
	if _, err := d.reg.Get(unitIndex); err != nil {
		return nil, err
	}
	h := newHandle(unitIndex)
	if err := d.queues[unitIndex].push(&job{ctx: ctx, inv: inv, handle: h}); err != nil {
		return nil, err
	}
	return h, nil
}

// Execute runs the invocation inline, blocking until the unit completes.
func (d *Dispatcher) Execute(ctx context.Context, unitIndex int, inv kernel.Invocation) (kernel.Result, error) {
	h, err := d.ExecuteAsync(ctx, unitIndex, inv)
	if err != nil {
		return nil, err
	}
	return h.Resolve(ctx)
}

// Close drains every queue and stops the workers. Pending submissions still
// run; new submissions fail with ErrClosed.
func (d *Dispatcher) Close() {
	for _, q := range d.queues {
		q.close()
	}
	d.wg.Wait()
}
