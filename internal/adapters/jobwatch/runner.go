// Package jobwatch runs the background loop that keeps the cached job list
// snapshot fresh.
package jobwatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mmk-content-dashboard/internal/observability/metrics"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"github.com/target/mmk-content-dashboard/internal/service"
)

// Refresher rebuilds the job list snapshot.
type Refresher interface {
	RefreshSnapshot(ctx context.Context) (service.SnapshotStats, error)
}

// Runner refreshes the job snapshot on a fixed interval.
type Runner struct {
	jobs     Refresher
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Jobs     Refresher
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// NewRunner creates a new job watch runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job refresher is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		jobs:     opts.Jobs,
		interval: opts.Interval,
		logger:   opts.Logger.With("component", "jobwatch"),
		metrics:  opts.Metrics,
	}, nil
}

// Run refreshes once immediately, then on every tick until ctx is cancelled.
// Refresh failures are logged and the loop keeps running.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job watch runner", "interval", r.interval)

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "job watch runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	stats, err := r.jobs.RefreshSnapshot(ctx)
	elapsed := time.Since(start)

	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case stats.Jobs == 0:
		result = metrics.ResultNoop
	}
	metrics.EmitSnapshotRefresh(r.metrics, metrics.SnapshotMetric{
		Result:   result,
		Jobs:     stats.Jobs,
		Active:   stats.Active,
		Duration: elapsed,
		Err:      err,
	})

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.WarnContext(ctx, "job snapshot refresh failed", "error", err)
		return
	}
	r.logger.DebugContext(ctx, "job snapshot refreshed",
		"jobs", stats.Jobs, "active", stats.Active, "skipped", stats.Skipped, "duration", elapsed)
}
