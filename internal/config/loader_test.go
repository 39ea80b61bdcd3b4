package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/testutil"
)

func TestLoadRemotePlatform(t *testing.T) {
	path := testutil.WriteConfig(t, `
platform {
  backend       = "remote"
  urls          = ["http://a:1", "http://b:2", "http://c:3"]
  backend_names = ["sim"]
}
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, p.Backend)
	assert.Equal(t, string(DistributionThread), p.Distribution)
	assert.Len(t, p.URLs, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "sim", p.BackendNameFor(i))
	}
}

func TestLoadDefaultsApplied(t *testing.T) {
	p, err := LoadBytes("test.hcl", []byte(`
platform {
  unit_count = 4
}
`))
	require.NoError(t, err)
	assert.Equal(t, BackendLocalSim, p.Backend)
	assert.Equal(t, string(DistributionThread), p.Distribution)
	assert.Equal(t, 4, p.LocalUnitCount())
	assert.Equal(t, DefaultBackendName, p.BackendNameFor(0))
}

func TestMismatchedBackendNamesLengthIsConfigurationError(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`
platform {
  backend       = "remote"
  urls          = ["http://a:1", "http://b:2", "http://c:3"]
  backend_names = ["sim", "sim2"]
}
`))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestPositionalBackendNames(t *testing.T) {
	p, err := LoadBytes("test.hcl", []byte(`
platform {
  backend       = "remote"
  urls          = ["http://a:1", "http://b:2"]
  backend_names = ["statevector", "tensornet"]
}
`))
	require.NoError(t, err)
	assert.Equal(t, "statevector", p.BackendNameFor(0))
	assert.Equal(t, "tensornet", p.BackendNameFor(1))
}

func TestAutoLaunchAndURLsMutuallyExclusive(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`
platform {
  backend     = "remote"
  auto_launch = 2
  urls        = ["http://a:1"]
}
`))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`
platform {
  backend = "abacus"
}
`))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestUnknownDistributionRejected(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`
platform {
  distribution = "carrier-pigeon"
}
`))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestMalformedHCLRejected(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`platform { backend = `))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestMissingPlatformBlockRejected(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(``))
	require.Error(t, err)
	assert.True(t, qerr.HasKind(err, qerr.Configuration))
}

func TestDeviceCountCapturedFromEnv(t *testing.T) {
	t.Setenv(EnvDeviceCount, "3")

	p, err := LoadBytes("test.hcl", []byte(`
platform {
  backend = "gpu-sim"
}
`))
	require.NoError(t, err)
	assert.Equal(t, 3, p.DeviceCount)
	assert.Equal(t, 3, p.LocalUnitCount())
}

func TestVisibleDevicesListCounted(t *testing.T) {
	t.Setenv(EnvDeviceCount, "")
	t.Setenv(EnvVisibleDevices, "0,1,2,3")

	p, err := LoadBytes("test.hcl", []byte(`
platform {
  backend = "gpu-sim"
}
`))
	require.NoError(t, err)
	assert.Equal(t, 4, p.DeviceCount)
}

func TestUnitCountOverridesDeviceCount(t *testing.T) {
	t.Setenv(EnvDeviceCount, "8")

	p, err := LoadBytes("test.hcl", []byte(`
platform {
  backend    = "gpu-sim"
  unit_count = 2
}
`))
	require.NoError(t, err)
	assert.Equal(t, 2, p.LocalUnitCount())
}

func TestWithEndpointsRewritesToRemote(t *testing.T) {
	p, err := LoadBytes("test.hcl", []byte(`
platform {
  backend     = "remote"
  auto_launch = 2
}
`))
	require.NoError(t, err)

	eff := p.WithEndpoints([]string{"http://127.0.0.1:9100", "http://127.0.0.1:9101"})
	assert.Equal(t, BackendRemote, eff.Backend)
	assert.Zero(t, eff.AutoLaunch)
	assert.Len(t, eff.URLs, 2)
	// Original untouched.
	assert.Equal(t, 2, p.AutoLaunch)
	assert.Empty(t, p.URLs)
}
