package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qpugridgo/internal/kernel"
)

func TestSampleCountsSumToShots(t *testing.T) {
	e := New()
	inv := kernel.Invocation{Kernel: "bell", Shots: 100, Observable: "ZZZZ"}

	res, err := e.Run(context.Background(), "statevector", -1, inv)
	require.NoError(t, err)

	samples, ok := res.(kernel.Samples)
	require.True(t, ok)
	assert.Equal(t, uint64(100), samples.Total())
	for bits := range samples.Counts {
		assert.Len(t, bits, 4)
	}
}

func TestRunIsDeterministicPerInvocation(t *testing.T) {
	e := New()
	inv := kernel.Invocation{
		Kernel:     "ansatz",
		Args:       kernel.NewArgEncoder().Float64(0.59).Bytes(),
		Observable: "XXI",
	}

	first, err := e.Run(context.Background(), "statevector", 0, inv)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), "statevector", 3, inv)
	require.NoError(t, err)

	// Same circuit on a different device of the same backend agrees exactly.
	assert.Equal(t, first, second)
}

func TestDistinctObservablesProduceDistinctValues(t *testing.T) {
	e := New()
	base := kernel.Invocation{Kernel: "ansatz"}

	a, err := e.Run(context.Background(), "statevector", -1, base.WithObservable("XX"))
	require.NoError(t, err)
	b, err := e.Run(context.Background(), "statevector", -1, base.WithObservable("YY"))
	require.NoError(t, err)

	assert.NotEqual(t, a.(kernel.Expectation).Value, b.(kernel.Expectation).Value)
}

func TestExpectationWithinUnitInterval(t *testing.T) {
	e := New()
	res, err := e.Run(context.Background(), "statevector", -1, kernel.Invocation{Kernel: "ansatz", Observable: "Z"})
	require.NoError(t, err)

	v := res.(kernel.Expectation).Value
	assert.GreaterOrEqual(t, v, -1.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestFailKernelsReportFailure(t *testing.T) {
	e := New()
	e.FailKernels = map[kernel.CodeRef]string{"broken": "segfault in backend"}

	_, err := e.Run(context.Background(), "statevector", -1, kernel.Invocation{Kernel: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segfault")
}

func TestRunHonorsCancelledContext(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, "statevector", -1, kernel.Invocation{Kernel: "bell", Shots: 10})
	require.Error(t, err)
}
