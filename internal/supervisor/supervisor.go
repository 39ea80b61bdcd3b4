// Package supervisor launches and tears down local unit-server processes
// for auto-launch mode.
//
// The process table is mutated only by the goroutine performing launch and
// shutdown; concurrent launches within one run are not supported.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/qpugridgo/internal/config"
	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/transport"
)

// Options tunes process launch behavior.
type Options struct {
	// Binary is the server executable. Empty means re-exec the current
	// binary in --serve mode.
	Binary string
	// ExtraArgs are prepended before the per-process serve flags.
	ExtraArgs []string
	// Env entries are appended to the inherited environment of every
	// launched process.
	Env []string
	// ReadyTimeout bounds the wait for each server to answer its health
	// endpoint.
	ReadyTimeout time.Duration
	// PollInterval is the readiness polling cadence.
	PollInterval time.Duration
}

func (o *Options) applyDefaults() error {
	if o.Binary == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate own binary: %w", err)
		}
		o.Binary = self
		o.ExtraArgs = append([]string{"--serve"}, o.ExtraArgs...)
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 15 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	return nil
}

// Supervisor owns the server processes it started. ShutdownAll must run
// exactly once at run end, on every exit path; it is safe to defer
// immediately after New.
type Supervisor struct {
	opts Options

	mu           sync.Mutex
	procs        []*exec.Cmd
	shutdownOnce sync.Once
}

// New creates a supervisor.
func New(opts Options) *Supervisor {
	return &Supervisor{opts: opts}
}

// Launch binds n unused local ports, starts one server process per port
// with its positionally matched backend, waits for every one to become
// ready and returns their endpoints in port-assignment order. On failure
// the caller's deferred ShutdownAll terminates whatever was started.
func (s *Supervisor) Launch(ctx context.Context, n int, backendNames []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	if err := s.opts.applyDefaults(); err != nil {
		return nil, qerr.Wrap(qerr.Configuration, err, "auto-launch setup")
	}
	if len(backendNames) > 1 && len(backendNames) != n {
		return nil, qerr.Newf(qerr.Configuration,
			"backend_names has %d entries for %d launched servers", len(backendNames), n)
	}

	ports, err := freePorts(n)
	if err != nil {
		return nil, qerr.Wrap(qerr.Configuration, err, "binding local ports")
	}

	endpoints := make([]string, n)
	for i := 0; i < n; i++ {
		backend := config.DefaultBackendName
		switch len(backendNames) {
		case 0:
		case 1:
			backend = backendNames[0]
		default:
			backend = backendNames[i]
		}

		args := append(append([]string(nil), s.opts.ExtraArgs...),
			"--port", fmt.Sprintf("%d", ports[i]),
			"--backend", backend,
		)
		cmd := exec.Command(s.opts.Binary, args...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		if len(s.opts.Env) > 0 {
			cmd.Env = append(os.Environ(), s.opts.Env...)
		}
		if err := cmd.Start(); err != nil {
			return nil, qerr.Wrap(qerr.LaunchTimeout, err, fmt.Sprintf("starting server on port %d", ports[i]))
		}

		s.mu.Lock()
		s.procs = append(s.procs, cmd)
		s.mu.Unlock()

		endpoints[i] = fmt.Sprintf("http://127.0.0.1:%d", ports[i])
		logger.Debug("Launched unit server.", "endpoint", endpoints[i], "backend", backend, "pid", cmd.Process.Pid)
	}

	if err := s.awaitReady(ctx, endpoints); err != nil {
		return nil, err
	}
	logger.Info("All unit servers ready.", "count", n)
	return endpoints, nil
}

// awaitReady polls every endpoint's health path until it answers or the
// bounded wait expires.
func (s *Supervisor) awaitReady(ctx context.Context, endpoints []string) error {
	hc := &http.Client{Timeout: s.opts.PollInterval * 4}
	g, gctx := errgroup.WithContext(ctx)

	for _, endpoint := range endpoints {
		g.Go(func() error {
			deadline := time.Now().Add(s.opts.ReadyTimeout)
			for {
				if time.Now().After(deadline) {
					return qerr.Newf(qerr.LaunchTimeout, "server not ready after %s", s.opts.ReadyTimeout).
						WithEndpoint(endpoint)
				}
				req, err := http.NewRequestWithContext(gctx, http.MethodGet, endpoint+transport.HealthPath, nil)
				if err != nil {
					return err
				}
				resp, err := hc.Do(req)
				if err == nil {
					resp.Body.Close()
					if resp.StatusCode == http.StatusOK {
						return nil
					}
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(s.opts.PollInterval):
				}
			}
		})
	}
	return g.Wait()
}

// ShutdownAll terminates every process the supervisor started. Safe to call
// multiple times; only the first call acts.
func (s *Supervisor) ShutdownAll() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		procs := s.procs
		s.procs = nil
		s.mu.Unlock()

		for _, cmd := range procs {
			if cmd.Process == nil {
				continue
			}
			_ = cmd.Process.Kill()
		}
		for _, cmd := range procs {
			_ = cmd.Wait()
		}
	})
}

// freePorts binds and releases n listeners to reserve distinct unused
// local ports.
func freePorts(n int) ([]int, error) {
	ports := make([]int, 0, n)
	listeners := make([]net.Listener, 0, n)
	defer func() {
		for _, ln := range listeners {
			ln.Close()
		}
	}()

	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, ln)
		ports = append(ports, ln.Addr().(*net.TCPAddr).Port)
	}
	return ports, nil
}
