package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"kernelforge/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPriorityOrdering(t *testing.T) {
	s := New(config.SchedulerConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		}
	}

	s.Submit(PriorityLow, record("low"))
	s.Submit(PriorityCritical, record("critical"))
	s.Submit(PriorityNormal, record("normal"))
	// Start the loop only once all three are queued, so dispatch order is
	// decided by priority rather than by submission timing.
	go s.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"critical", "normal", "low"}, order)
}

func TestStatsTracksCompletion(t *testing.T) {
	s := New(config.SchedulerConfig{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer func() {
		cancel()
		s.Wait()
	}()

	done := make(chan struct{})
	s.Submit(PriorityNormal, func(context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	require.Eventually(t, func() bool {
		return s.Stats().Completed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelOnlyAffectsQueuedTasks(t *testing.T) {
	s := New(config.SchedulerConfig{Workers: 1})

	block := make(chan struct{})
	id1, err := s.Submit(PriorityNormal, func(context.Context) error {
		<-block
		return nil
	})
	require.NoError(t, err)
	id2, err := s.Submit(PriorityLow, func(context.Context) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer func() {
		close(block)
		cancel()
		s.Wait()
	}()

	require.Eventually(t, func() bool {
		task, ok := s.Get(id1)
		return ok && task.Status == StatusRunning
	}, time.Second, 10*time.Millisecond)

	require.True(t, s.Cancel(id2))
	task, ok := s.Get(id2)
	require.True(t, ok)
	require.Equal(t, StatusCancelled, task.Status)

	require.False(t, s.Cancel(id1))
}

func TestQueueFullOnSubmitPastCapacity(t *testing.T) {
	s := New(config.SchedulerConfig{Workers: 1, QueueCapacity: 1})

	_, err := s.Submit(PriorityNormal, func(context.Context) error { return nil })
	require.NoError(t, err)

	_, err = s.Submit(PriorityNormal, func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestBackgroundTaskDeferredWhileWorkflowActive(t *testing.T) {
	s := New(config.SchedulerConfig{Workers: 1, BackgroundMinGapMS: 1})
	s.MarkWorkflowActive("wf-1")

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer func() {
		cancel()
		s.Wait()
	}()

	id, err := s.Submit(PriorityBackground, func(context.Context) error { return nil })
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	task, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, StatusQueued, task.Status)
	require.Greater(t, s.Stats().TasksSkippedDueToWorkflows, uint64(0))

	s.MarkWorkflowInactive("wf-1")
	require.Eventually(t, func() bool {
		task, _ := s.Get(id)
		return task.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)
}
