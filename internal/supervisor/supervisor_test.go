package supervisor

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/server"
	"github.com/vk/qpugridgo/internal/sim"
	"github.com/vk/qpugridgo/internal/testutil"
	"github.com/vk/qpugridgo/internal/transport"
)

const helperEnv = "QPUGRID_SUPERVISOR_HELPER"

// TestHelperServe is not a test: when re-executed by the supervisor tests
// it hosts a real unit server until killed.
func TestHelperServe(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		t.Skip("helper process only")
	}

	args := flag.Args()
	port, backend := 0, "statevector"
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "--port":
			port, _ = strconv.Atoi(args[i+1])
		case "--backend":
			backend = args[i+1]
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(backend, sim.New(), logger)
	if err := srv.ListenAndServe(context.Background(), "127.0.0.1:"+strconv.Itoa(port)); err != nil {
		os.Exit(1)
	}
}

func helperOptions(readyTimeout time.Duration) Options {
	return Options{
		Binary:       os.Args[0],
		ExtraArgs:    []string{"-test.run=TestHelperServe$", "--"},
		Env:          []string{helperEnv + "=1"},
		ReadyTimeout: readyTimeout,
		PollInterval: 25 * time.Millisecond,
	}
}

func TestLaunchAndShutdown(t *testing.T) {
	ctx, _ := testutil.Context(t)

	s := New(helperOptions(10 * time.Second))
	defer s.ShutdownAll()

	endpoints, err := s.Launch(ctx, 2, []string{"sim"})
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.NotEqual(t, endpoints[0], endpoints[1])

	for _, endpoint := range endpoints {
		resp, err := http.Get(endpoint + transport.HealthPath)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	s.ShutdownAll()

	// Servers are gone after teardown.
	require.Eventually(t, func() bool {
		_, err := http.Get(endpoints[0] + transport.HealthPath)
		return err != nil
	}, 5*time.Second, 50*time.Millisecond)
}

func TestShutdownAllIsIdempotent(t *testing.T) {
	ctx, _ := testutil.Context(t)

	s := New(helperOptions(10 * time.Second))
	_, err := s.Launch(ctx, 1, nil)
	require.NoError(t, err)

	s.ShutdownAll()
	s.ShutdownAll()
}

func TestLaunchTimeoutWhenServerNeverReady(t *testing.T) {
	ctx, _ := testutil.Context(t)

	// A process that starts but never serves health.
	s := New(Options{
		Binary:       "sleep",
		ExtraArgs:    nil,
		ReadyTimeout: 300 * time.Millisecond,
		PollInterval: 25 * time.Millisecond,
	})
	defer s.ShutdownAll()

	_, err := s.Launch(ctx, 1, nil)
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.LaunchTimeout))
}

func TestLaunchRejectsMismatchedBackendNames(t *testing.T) {
	ctx, _ := testutil.Context(t)

	s := New(helperOptions(time.Second))
	defer s.ShutdownAll()

	_, err := s.Launch(ctx, 3, []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}
