// Package app wires the platform together: configuration, unit registry,
// dispatcher, distribution strategy and (in auto-launch mode) the process
// supervisor, under one run lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/qpugridgo/internal/comm"
	"github.com/vk/qpugridgo/internal/config"
	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/dispatch"
	"github.com/vk/qpugridgo/internal/distribute"
	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/registry"
	"github.com/vk/qpugridgo/internal/sim"
	"github.com/vk/qpugridgo/internal/supervisor"
	"github.com/vk/qpugridgo/internal/transport"
	"github.com/vk/qpugridgo/internal/unit"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath points at the HCL run configuration. Empty means the
	// built-in default platform (one local simulated unit).
	ConfigPath string

	LogFormat string
	LogLevel  string

	// Serve hosts one unit server instead of running the platform.
	Serve   bool
	Port    int
	Backend string
}

// App encapsulates the platform's dependencies, configuration and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	platform *config.Platform

	executor unit.Executor
	client   *transport.Client
	comm     comm.Communicator

	sup      *supervisor.Supervisor
	reg      *registry.Registry
	disp     *dispatch.Dispatcher
	strategy distribute.Strategy
}

// NewApp is the constructor for the platform application. It loads and
// validates the run configuration; a failure to do so is a fatal startup
// error and panics (the CLI recovers and reports it).
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		executor: sim.New(),
		client:   transport.NewClient(60 * time.Second),
		comm:     comm.Single{},
	}

	if cfg.Serve {
		// Serve mode hosts a single unit; no platform config is loaded.
		return a
	}

	var platform *config.Platform
	var err error
	if cfg.ConfigPath != "" {
		platform, err = config.Load(cfg.ConfigPath)
	} else {
		platform, err = config.Default()
	}
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Run configuration loaded.", "backend", platform.Backend, "distribution", platform.Distribution)

	a.platform = platform
	return a
}

// Logger returns the application's isolated logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Platform returns the loaded run configuration. This is primarily for
// testing.
func (a *App) Platform() *config.Platform {
	return a.platform
}

// Registry returns the unit registry once Start has run.
func (a *App) Registry() *registry.Registry {
	return a.reg
}

// SetExecutor replaces the simulator collaborator before Start. Used by
// embedders that bring real backends; the default is the deterministic
// reference executor.
func (a *App) SetExecutor(exec unit.Executor) {
	a.executor = exec
}

// SetCommunicator supplies the external rank coordination layer for the
// mpi distribution mode. The default is the single-rank communicator.
func (a *App) SetCommunicator(c comm.Communicator) {
	a.comm = c
}

// Start builds the unit registry and dispatcher, launching server
// processes first when auto-launch is configured. Stop must be called at
// run end on every path once Start has been invoked.
func (a *App) Start(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	effective := a.platform
	if a.platform.AutoLaunch > 0 {
		a.sup = supervisor.New(supervisor.Options{})
		endpoints, err := a.sup.Launch(ctx, a.platform.AutoLaunch, a.platform.BackendNames)
		if err != nil {
			return fmt.Errorf("auto-launch failed: %w", err)
		}
		effective = a.platform.WithEndpoints(endpoints)
	}

	reg, err := registry.Build(ctx, effective, a.executor, a.client)
	if err != nil {
		return fmt.Errorf("failed to build unit registry: %w", err)
	}
	a.reg = reg

	switch config.Distribution(a.platform.Distribution) {
	case config.DistributionThread:
		a.strategy = distribute.Thread{}
	case config.DistributionMPI:
		a.strategy = distribute.Rank{Comm: a.comm}
	default:
		return qerr.Newf(qerr.Configuration, "unknown distribution %q", a.platform.Distribution)
	}

	a.disp = dispatch.New(ctx, reg)
	a.logger.Info("Platform ready.", "units", reg.Count(), "backend", effective.Backend, "distribution", a.platform.Distribution)
	return nil
}

// Stop drains the dispatcher and tears down supervised processes. Safe on
// every exit path, including after a failed Start.
func (a *App) Stop() {
	if a.disp != nil {
		a.disp.Close()
		a.disp = nil
	}
	if a.sup != nil {
		a.sup.ShutdownAll()
		a.sup = nil
	}
}

// newLogger builds the app-scoped logger. The global slog default is left
// untouched; every App owns its handler and sink, so concurrent Apps
// (and tests) log in isolation.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(outW, opts))
	}
	return slog.New(slog.NewJSONHandler(outW, opts))
}
