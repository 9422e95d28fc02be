package dispatcher

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kernelforge/internal/config"
	"kernelforge/internal/cron"
	"kernelforge/internal/scheduler"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcherSubmitsDueCronTasks(t *testing.T) {
	dir := t.TempDir()
	cronMgr, err := cron.New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	sched := scheduler.New(config.SchedulerConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sched.Run(ctx) }()

	ran := make(chan struct{}, 1)
	_, err = cronMgr.Create(ctx, "decay", "test task", "* * * * *", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, nil, nil)
	require.NoError(t, err)

	d := New(sched, cronMgr, 10*time.Millisecond)
	go func() { defer wg.Done(); d.Run(ctx) }()

	defer func() {
		cancel()
		sched.Wait()
		wg.Wait()
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("due cron task never ran")
	}

	require.Eventually(t, func() bool {
		for _, e := range cronMgr.List(false) {
			if e.Name == "decay" {
				return e.RunCount >= 1
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherSkipsWhileWorkflowActive(t *testing.T) {
	dir := t.TempDir()
	cronMgr, err := cron.New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	sched := scheduler.New(config.SchedulerConfig{Workers: 1})
	sched.MarkWorkflowActive("wf-1")
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); sched.Run(ctx) }()

	ran := make(chan struct{}, 1)
	_, err = cronMgr.Create(ctx, "decay", "test task", "* * * * *", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, nil, nil)
	require.NoError(t, err)

	d := New(sched, cronMgr, 10*time.Millisecond)
	dctx, dcancel := context.WithTimeout(ctx, 100*time.Millisecond)
	_ = d.Run(dctx)
	dcancel()

	select {
	case <-ran:
		t.Fatal("cron task ran while a workflow was active")
	default:
	}

	cancel()
	sched.Wait()
	wg.Wait()
}
