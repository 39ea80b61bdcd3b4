// Package server hosts one execution unit behind the REST wire contract.
// One server process serves exactly one unit; the process supervisor
// launches a fleet of them in auto-launch mode.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/transport"
	"github.com/vk/qpugridgo/internal/unit"
)

// Server exposes a single executor-backed unit over HTTP.
type Server struct {
	backend string
	exec    unit.Executor
	logger  *slog.Logger
}

// New creates a server for the given backend identity and executor.
func New(backend string, exec unit.Executor, logger *slog.Logger) *Server {
	return &Server{backend: backend, exec: exec, logger: logger}
}

// Handler returns the HTTP handler implementing the wire contract:
// POST /v1/kernel runs one invocation, GET /health reports readiness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(transport.HealthPath, s.handleHealth)
	mux.HandleFunc(transport.KernelPath, s.handleKernel)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("Unit server listening.", "address", ln.Addr().String(), "backend", s.backend)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handleKernel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	var req transport.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "", fmt.Sprintf("malformed request: %v", err))
		return
	}
	if req.Kernel == "" {
		s.writeError(w, http.StatusBadRequest, req.JobID, "missing kernel reference")
		return
	}
	if req.Shots < 0 {
		s.writeError(w, http.StatusBadRequest, req.JobID, "negative shot count")
		return
	}

	inv := kernel.Invocation{
		Kernel:     kernel.CodeRef(req.Kernel),
		Args:       req.Args,
		Shots:      req.Shots,
		Observable: req.Observable,
	}
	s.logger.Debug("Executing kernel request.", "kernel", req.Kernel, "jobID", req.JobID, "shots", req.Shots)

	res, err := s.exec.Run(r.Context(), s.backend, -1, inv)
	if err != nil {
		s.logger.Error("Kernel execution failed.", "kernel", req.Kernel, "jobID", req.JobID, "error", err)
		s.writeError(w, http.StatusInternalServerError, req.JobID, err.Error())
		return
	}

	resp := transport.Response{JobID: req.JobID}
	switch v := res.(type) {
	case kernel.Samples:
		resp.Counts = v.Counts
	case kernel.Expectation:
		value := v.Value
		resp.Value = &value
	default:
		s.writeError(w, http.StatusInternalServerError, req.JobID, "executor returned unknown result type")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to write response.", "jobID", req.JobID, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, jobID, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(transport.Response{JobID: jobID, Error: msg})
}
