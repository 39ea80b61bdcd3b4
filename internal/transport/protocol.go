// Package transport carries a kernel invocation to a remote execution unit
// over HTTP/JSON and reconstructs its result.
package transport

// KernelPath is the invocation endpoint served by every remote unit.
const KernelPath = "/v1/kernel"

// HealthPath is the readiness endpoint polled by the process supervisor.
const HealthPath = "/health"

// Request is the wire form of one kernel invocation. Args is the raw
// argument buffer; encoding/json transports []byte as base64.
type Request struct {
	JobID      string `json:"job_id"`
	Kernel     string `json:"kernel"`
	Args       []byte `json:"args"`
	Observable string `json:"observable,omitempty"`
	Shots      int    `json:"shots,omitempty"`
}

// Response is the wire form of one execution result. Exactly one of Counts,
// Value or Error is populated: Counts for sampling, Value for expectation,
// Error for a backend-reported failure.
type Response struct {
	JobID  string            `json:"job_id,omitempty"`
	Counts map[string]uint64 `json:"counts,omitempty"`
	Value  *float64          `json:"value,omitempty"`
	Error  string            `json:"error,omitempty"`
}
