package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeAndGet(t *testing.T) {
	require.NoError(t, Initialize(Options{Level: LevelDebug, Development: true}))

	l := Get(CategoryScheduler)
	require.NotNil(t, l)

	// Same category returns the same cached logger instance.
	l2 := Get(CategoryScheduler)
	require.Same(t, l, l2)

	// Different categories get distinct loggers.
	l3 := Get(CategoryCron)
	require.NotSame(t, l, l3)
}

func TestGetWithoutInitializeUsesDefaults(t *testing.T) {
	mu.Lock()
	initialized = false
	base = nil
	sugared = map[Category]*zap.SugaredLogger{}
	mu.Unlock()

	l := Get(CategoryBoot)
	require.NotNil(t, l)
}

func TestTimerStopDoesNotPanic(t *testing.T) {
	require.NoError(t, Initialize(DefaultOptions()))
	timer := StartTimer(CategoryKernel, "unit-test-op")
	timer.Stop()
}
