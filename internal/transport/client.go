package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vk/qpugridgo/internal/ctxlog"
	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/qerr"
)

// Client performs synchronous request/response round trips against remote
// execution units. It is safe for concurrent use and shared by all remote
// units in a registry.
type Client struct {
	hc *http.Client
}

// NewClient creates a transport client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Invoke performs exactly one round trip against the unit at endpoint.
// Failures classify as TransportUnavailable (endpoint unreachable),
// BackendFailure (well-formed error response) or ProtocolViolation
// (malformed response body). No failure is retried internally; retry
// composition against a different unit is the caller's.
func (c *Client) Invoke(ctx context.Context, endpoint string, inv kernel.Invocation) (kernel.Result, error) {
	logger := ctxlog.FromContext(ctx)

	wire := Request{
		JobID:      uuid.NewString(),
		Kernel:     string(inv.Kernel),
		Args:       inv.Args,
		Observable: inv.Observable,
		Shots:      inv.Shots,
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := endpoint + KernelPath
	logger.Debug("Invoking remote unit.", "endpoint", endpoint, "kernel", wire.Kernel, "jobID", wire.JobID, "shots", wire.Shots)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, qerr.Wrap(qerr.TransportUnavailable, err, "invoke "+wire.Kernel).WithEndpoint(endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, qerr.Wrap(qerr.ProtocolViolation, err, "reading response body").WithEndpoint(endpoint)
	}

	var wireResp Response
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, qerr.Newf(qerr.ProtocolViolation, "malformed response (status %d): %v", resp.StatusCode, err).WithEndpoint(endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		if wireResp.Error == "" {
			return nil, qerr.Newf(qerr.ProtocolViolation, "status %d with no error field", resp.StatusCode).WithEndpoint(endpoint)
		}
		logger.Debug("Remote unit reported failure.", "endpoint", endpoint, "jobID", wire.JobID, "error", wireResp.Error)
		return nil, qerr.Newf(qerr.BackendFailure, "remote unit: %s", wireResp.Error).WithEndpoint(endpoint)
	}

	return decodeResult(endpoint, inv, wireResp)
}

// decodeResult validates the successful wire response against the
// invocation's requested result shape.
func decodeResult(endpoint string, inv kernel.Invocation, wireResp Response) (kernel.Result, error) {
	if inv.Sampling() {
		if wireResp.Counts == nil {
			return nil, qerr.New(qerr.ProtocolViolation, "sampling response missing counts").WithEndpoint(endpoint)
		}
		samples := kernel.Samples{Counts: wireResp.Counts}
		if total := samples.Total(); total != uint64(inv.Shots) {
			return nil, qerr.Newf(qerr.ProtocolViolation, "counts sum to %d, expected %d shots", total, inv.Shots).WithEndpoint(endpoint)
		}
		return samples, nil
	}
	if wireResp.Value == nil {
		return nil, qerr.New(qerr.ProtocolViolation, "expectation response missing value").WithEndpoint(endpoint)
	}
	return kernel.Expectation{Value: *wireResp.Value}, nil
}
