package app

import (
	"context"
	"fmt"

	"github.com/vk/qpugridgo/internal/config"
	"github.com/vk/qpugridgo/internal/server"
)

// runServe hosts one execution unit behind the REST wire contract until the
// context is cancelled. The process supervisor launches fleets of these in
// auto-launch mode.
func (a *App) runServe(ctx context.Context) error {
	backend := a.cfg.Backend
	if backend == "" {
		backend = config.DefaultBackendName
	}
	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Port)

	srv := server.New(backend, a.executor, a.logger)
	return srv.ListenAndServe(ctx, addr)
}
