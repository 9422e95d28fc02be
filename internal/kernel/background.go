package kernel

import (
	"context"
	"time"

	"kernelforge/internal/logging"
)

// minFixPatternAttempts bounds PruneLanguage's sweep to patterns that
// have actually been tried a few times, so a single early failure does
// not evict a pattern before it has a chance to accumulate successes.
const minFixPatternAttempts = 3

// StartBackground wires spec.md §2's background path: maintenance work
// is registered with C3 (cron) as named scheduled tasks, C4 (dispatcher)
// polls cron.DueNow and submits due tasks to C2 (scheduler) at
// background priority gated on HasActiveWorkflows, and the scheduler's
// worker pool drains them alongside foreground Submit work. It returns
// once both poll loops are running — shutdown is driven by cancelling
// ctx.
func (k *Kernel) StartBackground(ctx context.Context) {
	log := logging.Get(logging.CategoryKernel)

	if _, err := k.cronMgr.Create(ctx, "artifact_decay", "decay stale artifact scores", "0 * * * *",
		func(ctx context.Context) error {
			n, err := k.store.ApplyDecay(ctx, time.Now())
			if err == nil {
				log.Debugw("applied artifact decay", "count", n)
			}
			return err
		}, nil, nil); err != nil {
		log.Errorw("failed to register artifact_decay cron task", "error", err)
	}

	if _, err := k.cronMgr.Create(ctx, "fix_pattern_prune", "prune low-success fix patterns", "0 */6 * * *",
		func(ctx context.Context) error {
			n, err := k.fixes.PruneLanguage(ctx, "go", minFixPatternAttempts)
			if err == nil {
				log.Debugw("pruned fix patterns", "count", n)
			}
			return err
		}, nil, nil); err != nil {
		log.Errorw("failed to register fix_pattern_prune cron task", "error", err)
	}

	go func() {
		if err := k.sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("scheduler loop exited", "error", err)
		}
	}()

	go func() {
		if err := k.dispatch.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("dispatcher loop exited", "error", err)
		}
	}()
}
