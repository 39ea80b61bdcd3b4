package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/qpugridgo/internal/qerr"
)

// Environment variables captured once at load time.
const (
	// EnvDeviceCount overrides the visible GPU device count directly.
	EnvDeviceCount = "QPUGRID_DEVICE_COUNT"
	// EnvVisibleDevices is a comma-separated device list; its length is the
	// visible device count.
	EnvVisibleDevices = "QPUGRID_VISIBLE_DEVICES"
)

// fileRoot decodes the top-level blocks of a run configuration file.
type fileRoot struct {
	Platform *Platform `hcl:"platform,block"`
	Remain   hcl.Body  `hcl:",remain"`
}

// Load parses the HCL run configuration at path, captures process-wide
// state into it and validates the result.
func Load(path string) (*Platform, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, qerr.Wrap(qerr.Configuration, diags, fmt.Sprintf("failed to parse %s", path))
	}
	return decode(hclFile)
}

// LoadBytes parses an in-memory HCL run configuration. The filename is used
// for diagnostics only.
func LoadBytes(filename string, src []byte) (*Platform, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, qerr.Wrap(qerr.Configuration, diags, fmt.Sprintf("failed to parse %s", filename))
	}
	return decode(hclFile)
}

// Default returns the configuration used when no file is given: one local
// simulated unit, thread distribution.
func Default() (*Platform, error) {
	p := &Platform{}
	p.applyDefaults()
	p.DeviceCount = captureDeviceCount()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decode(file *hcl.File) (*Platform, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, qerr.Wrap(qerr.Configuration, diags, "failed to decode configuration")
	}
	if root.Platform == nil {
		return nil, qerr.New(qerr.Configuration, "missing required platform block")
	}

	p := root.Platform
	p.applyDefaults()
	p.DeviceCount = captureDeviceCount()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// captureDeviceCount reads the visible GPU device count from the
// environment. This is the only place the platform touches the environment;
// everything downstream reads the captured value.
func captureDeviceCount() int {
	if raw := os.Getenv(EnvDeviceCount); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	if raw := os.Getenv(EnvVisibleDevices); raw != "" {
		return len(strings.Split(raw, ","))
	}
	return 0
}
