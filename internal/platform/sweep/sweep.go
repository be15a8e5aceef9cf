// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

/*
Package sweep runs periodic janitorial tasks on a fixed interval.

The auth core exposes idempotent SweepExpired operations on its stores;
this package owns the scheduling. Sweeps are purely reclamation — foreground
flows always re-check expiry explicitly and never depend on a sweep having
run, so a failed or delayed sweep degrades nothing but memory/disk usage.

Failures are logged and swallowed. They must never propagate to
request-serving paths.
*/
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// Task is a single named reclamation job. Run returns the number of records
// it deleted so the sweep log stays informative.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Runner executes its tasks sequentially every interval until the context
// is cancelled.
type Runner struct {
	interval time.Duration
	tasks    []Task
	log      *slog.Logger
}

// NewRunner constructs a [Runner]. The caller starts it with `go runner.Run(ctx)`
// after wiring and stops it by cancelling the context on shutdown.
func NewRunner(interval time.Duration, logger *slog.Logger, tasks ...Task) *Runner {
	return &Runner{
		interval: interval,
		tasks:    tasks,
		log:      logger,
	}
}

// Run blocks, executing all tasks once per interval, until ctx is cancelled.
//
// Each cycle is bounded by the interval itself so a hung store call cannot
// pile up overlapping sweeps.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("sweeper_started",
		slog.Duration("interval", r.interval),
		slog.Int("tasks", len(r.tasks)),
	)

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			r.log.Info("sweeper_stopped")
			return
		}
	}
}

// runOnce executes every task once, logging failures without escalating.
func (r *Runner) runOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	for _, task := range r.tasks {
		deleted, err := task.Run(cycleCtx)
		if err != nil {
			// Best-effort: log and move on to the next task.
			r.log.Warn("sweep_task_failed",
				slog.String("task", task.Name),
				slog.Any("error", err),
			)
			continue
		}

		if deleted > 0 {
			r.log.Info("sweep_task_completed",
				slog.String("task", task.Name),
				slog.Int64("deleted", deleted),
			)
		}
	}
}
