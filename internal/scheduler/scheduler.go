// Package scheduler implements the Priority-Aware Scheduler (C2): a
// bounded work queue ordered by priority class, drained by a fixed pool of
// workers. There is no teacher package covering priority scheduling
// directly; bounded concurrency is grounded on the teacher's use of
// golang.org/x/sync elsewhere in its stack, here via
// golang.org/x/sync/semaphore (a weighted semaphore matches "N concurrent
// workers draining a queue" more directly than errgroup's
// all-must-finish-together shape), and the stats surface mirrors the
// counters-plus-snapshot convention the teacher exposes from its own
// api_scheduler-style status endpoints.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"kernelforge/internal/config"
	"kernelforge/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Priority classes from spec.md §4.2 — lower numeric value runs first.
type Priority int

const (
	PriorityCritical   Priority = 0
	PriorityHigh       Priority = 10
	PriorityNormal     Priority = 50
	PriorityLow        Priority = 90
	PriorityBackground Priority = 100
)

// Status is a task's lifecycle state, per spec.md §4.2's queued/running/
// completed/failed/cancelled taxonomy.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrQueueFull is returned by Submit when the bounded queue is already at
// capacity, per spec.md §8's "queue at capacity + 1 submission" boundary
// property.
var ErrQueueFull = errors.New("scheduler: queue full")

// Task is a unit of work submitted to the scheduler.
type Task struct {
	ID       string
	Name     string
	Priority Priority
	Run      func(ctx context.Context) error
	Status   Status
	Err      error
	enqueued time.Time
	seq      uint64
}

// Stats is a point-in-time snapshot of scheduler activity.
type Stats struct {
	Queued                      int
	Running                     int
	Completed                   uint64
	Failed                      uint64
	Cancelled                   uint64
	TasksSkippedDueToWorkflows  uint64
}

// Scheduler runs submitted tasks in priority order across a fixed worker
// pool, rate-limiting background-class tasks to at most one start per
// BackgroundMinGapMS and deferring them entirely while any workflow is
// active.
type Scheduler struct {
	mu       sync.Mutex
	queue    taskHeap
	tasks    map[string]*Task
	seq      uint64
	sem      *semaphore.Weighted
	workers  int
	capacity int
	lastBG   time.Time
	bgGap    time.Duration

	activeWorkflows map[string]struct{}

	wake     chan struct{}
	done     chan struct{}
	stopping bool
	wg       sync.WaitGroup

	running               int
	completed             uint64
	failed                uint64
	cancelled             uint64
	skippedDueToWorkflows uint64
}

// New builds a Scheduler but does not start its worker loop; call Run.
func New(cfg config.SchedulerConfig) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1000
	}
	return &Scheduler{
		tasks:           make(map[string]*Task),
		sem:             semaphore.NewWeighted(int64(cfg.Workers)),
		workers:         cfg.Workers,
		capacity:        cfg.QueueCapacity,
		bgGap:           time.Duration(cfg.BackgroundMinGapMS) * time.Millisecond,
		activeWorkflows: make(map[string]struct{}),
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

// Submit enqueues a task and returns its assigned ID, or ErrQueueFull if
// the bounded queue is already at capacity.
func (s *Scheduler) Submit(priority Priority, run func(ctx context.Context) error) (string, error) {
	return s.SubmitNamed(priority, "", run)
}

// SubmitNamed is Submit with an operator-facing name attached, surfaced
// by Get/Stats for diagnostics.
func (s *Scheduler) SubmitNamed(priority Priority, name string, run func(ctx context.Context) error) (string, error) {
	s.mu.Lock()
	if len(s.queue) >= s.capacity {
		s.mu.Unlock()
		return "", ErrQueueFull
	}
	s.seq++
	t := &Task{
		ID:       uuid.NewString(),
		Name:     name,
		Priority: priority,
		Run:      run,
		Status:   StatusQueued,
		enqueued: time.Now(),
		seq:      s.seq,
	}
	heap.Push(&s.queue, t)
	s.tasks[t.ID] = t
	s.mu.Unlock()

	logging.Get(logging.CategoryScheduler).Debugw("task submitted", "id", t.ID, "name", name, "priority", priority)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return t.ID, nil
}

// Cancel prevents a Queued task from starting. It has no effect on a task
// that is already Running or has finished — cancellation is cooperative
// and only effective before dispatch, per spec.md §5.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != StatusQueued {
		return false
	}
	for i, queued := range s.queue {
		if queued.ID == id {
			heap.Remove(&s.queue, i)
			break
		}
	}
	t.Status = StatusCancelled
	s.cancelled++
	return true
}

// Get returns a snapshot of a task's current state.
func (s *Scheduler) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// MarkWorkflowActive records that workflow id is in flight; while any
// workflow is active, BACKGROUND tasks are re-queued instead of run.
func (s *Scheduler) MarkWorkflowActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeWorkflows[id] = struct{}{}
}

// MarkWorkflowInactive clears a workflow's activity marker. Callers must
// call this on every exit path (including failure) so the set never
// leaks an entry, per spec.md §5's "balanced bracketing" requirement.
func (s *Scheduler) MarkWorkflowInactive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeWorkflows, id)
	if len(s.activeWorkflows) == 0 {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// HasActiveWorkflows reports whether any workflow is currently marked
// active, consulted by C4 before submitting background cron work.
func (s *Scheduler) HasActiveWorkflows() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeWorkflows) > 0
}

// Stats returns a snapshot of current queue and throughput state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Queued:                     len(s.queue),
		Running:                    s.running,
		Completed:                  s.completed,
		Failed:                     s.failed,
		Cancelled:                  s.cancelled,
		TasksSkippedDueToWorkflows: s.skippedDueToWorkflows,
	}
}

// Run drives the scheduler's dispatch loop until ctx is cancelled,
// handing queued tasks to the bounded worker pool as slots free up.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.wake:
		case <-ticker.C:
		}
		s.dispatchReady(ctx)
	}
}

// Stop marks the scheduler as no longer accepting dispatch and, if wait
// is true, blocks for in-flight tasks to finish (up to timeout). The
// caller is still responsible for cancelling the context passed to Run so
// the dispatch loop itself exits.
func (s *Scheduler) Stop(wait bool, timeout time.Duration) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if !wait {
		return nil
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()

	if timeout <= 0 {
		<-waited
		return nil
	}
	select {
	case <-waited:
		return nil
	case <-time.After(timeout):
		return errors.New("scheduler: stop timed out waiting for running tasks")
	}
}

func (s *Scheduler) dispatchReady(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.stopping || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]

		if next.Priority == PriorityBackground && len(s.activeWorkflows) > 0 {
			// Re-queue in place: pop and push preserves its seq, so its
			// position relative to other BACKGROUND tasks is unchanged.
			heap.Pop(&s.queue)
			heap.Push(&s.queue, next)
			s.skippedDueToWorkflows++
			s.mu.Unlock()
			return
		}
		if next.Priority == PriorityBackground && time.Since(s.lastBG) < s.bgGap {
			s.mu.Unlock()
			return
		}
		if !s.sem.TryAcquire(1) {
			s.mu.Unlock()
			return
		}
		task := heap.Pop(&s.queue).(*Task)
		if task.Priority == PriorityBackground {
			s.lastBG = time.Now()
		}
		task.Status = StatusRunning
		s.running++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.execute(ctx, task)
	}
}

func (s *Scheduler) execute(ctx context.Context, t *Task) {
	defer s.wg.Done()
	defer s.sem.Release(1)

	log := logging.Get(logging.CategoryScheduler)
	start := time.Now()
	err := t.Run(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	s.running--
	t.Err = err
	if err != nil {
		s.failed++
		t.Status = StatusFailed
	} else {
		s.completed++
		t.Status = StatusCompleted
	}
	s.mu.Unlock()

	if err != nil {
		log.Warnw("task failed", "id", t.ID, "duration", duration, "error", err)
	} else {
		log.Debugw("task completed", "id", t.ID, "duration", duration)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until Run has returned.
func (s *Scheduler) Wait() {
	<-s.done
}
