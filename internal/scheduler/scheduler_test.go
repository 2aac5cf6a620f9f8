package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_RunsJobPeriodically(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(zap.NewNop())

	require.NoError(t, s.Add(context.Background(), &Job{
		Name:     "tick",
		Interval: 50 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	time.Sleep(180 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestScheduler_OverlapGuardSkipsSlowTicks(t *testing.T) {
	t.Parallel()

	var started atomic.Int32
	block := make(chan struct{})

	s := New(zap.NewNop())
	require.NoError(t, s.Add(context.Background(), &Job{
		Name:     "slow",
		Interval: 30 * time.Millisecond,
		Run: func(context.Context) error {
			started.Add(1)
			<-block
			return nil
		},
	}))

	s.Start()
	time.Sleep(150 * time.Millisecond)

	// Several intervals elapsed but only one tick entered the job.
	assert.Equal(t, int32(1), started.Load())

	close(block)
	s.Stop()
}

func TestScheduler_RunOnStart(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(zap.NewNop())

	require.NoError(t, s.Add(context.Background(), &Job{
		Name:       "eager",
		Interval:   time.Hour,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_StopWaitsForInflightTick(t *testing.T) {
	t.Parallel()

	var finished atomic.Bool
	entered := make(chan struct{})

	s := New(zap.NewNop())
	require.NoError(t, s.Add(context.Background(), &Job{
		Name:     "graceful",
		Interval: 20 * time.Millisecond,
		Run: func(context.Context) error {
			close(entered)
			time.Sleep(80 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	}))

	s.Start()
	<-entered
	s.Stop()

	assert.True(t, finished.Load(), "stop must let the in-flight tick complete")
}

func TestToggle(t *testing.T) {
	t.Parallel()

	tg := NewToggle(true)
	assert.True(t, tg.Enabled())
	tg.Disable()
	assert.False(t, tg.Enabled())
	tg.Enable()
	assert.True(t, tg.Enabled())
}
