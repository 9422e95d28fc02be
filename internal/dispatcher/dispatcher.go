// Package dispatcher implements the Background Dispatcher (C4): a poll
// loop (default 30s period) that discovers cron tasks due to run and
// submits them to the scheduler (C2) at PriorityBackground so they never
// compete with foreground requests, per spec.md §4.4. Grounded on the
// teacher's autopoiesis_orchestrator.go poll-loop shape: a fixed tick
// interval driving independent, individually-erroring probes rather than
// a single monolithic background task.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"kernelforge/internal/cron"
	"kernelforge/internal/logging"
	"kernelforge/internal/scheduler"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultInterval = 30 * time.Second
	defaultWindow   = time.Minute
)

// Dispatcher polls the Cron Manager for due tasks on a fixed interval and
// submits each as a background-priority scheduler task, skipping the
// cycle entirely while any workflow is active.
type Dispatcher struct {
	sched    *scheduler.Scheduler
	cronMgr  *cron.Manager
	interval time.Duration
	window   time.Duration

	cronSlot  *semaphore.Weighted // spec.md §4.4: 1-slot concurrency cap across due cron tasks

	mu        sync.Mutex
	executing map[string]struct{}
}

// New builds a Dispatcher bound to sched and cronMgr, polling every
// interval (0 uses the spec default of 30s).
func New(sched *scheduler.Scheduler, cronMgr *cron.Manager, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Dispatcher{
		sched:     sched,
		cronMgr:   cronMgr,
		interval:  interval,
		window:    defaultWindow,
		cronSlot:  semaphore.NewWeighted(1),
		executing: make(map[string]struct{}),
	}
}

// Run drives the poll loop until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryDispatcher)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.pollOnce(ctx, log)
		}
	}
}

func (d *Dispatcher) pollOnce(ctx context.Context, log *zap.SugaredLogger) {
	if d.sched.HasActiveWorkflows() {
		log.Debugw("skipping background poll: workflow active")
		return
	}

	due, err := d.cronMgr.DueNow(time.Now(), d.window)
	if err != nil {
		log.Warnw("due_now query failed", "error", err)
		return
	}

	for _, entry := range due {
		name := entry.Name
		if d.alreadyExecuting(name) {
			continue
		}
		fn, ok := d.cronMgr.Func(name)
		if !ok {
			continue
		}

		d.markExecuting(name)
		log.Debugw("submitting due cron task", "name", name)

		_, err := d.sched.SubmitNamed(scheduler.PriorityBackground, name, func(taskCtx context.Context) error {
			defer d.clearExecuting(name)

			if acqErr := d.cronSlot.Acquire(taskCtx, 1); acqErr != nil {
				return acqErr
			}
			defer d.cronSlot.Release(1)

			runErr := fn(taskCtx)
			result := "ok"
			errMsg := ""
			if runErr != nil {
				result = ""
				errMsg = runErr.Error()
			}
			if markErr := d.cronMgr.MarkRun(name, runErr == nil, result, errMsg); markErr != nil {
				log.Warnw("mark_run failed", "name", name, "error", markErr)
			}
			return runErr
		})
		if err != nil {
			log.Warnw("failed to submit due cron task", "name", name, "error", err)
			d.clearExecuting(name)
		}
	}
}

func (d *Dispatcher) alreadyExecuting(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.executing[name]
	return ok
}

func (d *Dispatcher) markExecuting(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executing[name] = struct{}{}
}

func (d *Dispatcher) clearExecuting(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.executing, name)
}
