package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mmk-content-dashboard/internal/adapters/jobwatch"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
)

// JobWatchConfig contains configuration for the job snapshot watcher.
type JobWatchConfig struct {
	Jobs     jobwatch.Refresher
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// RunJobWatch runs the job snapshot watcher until ctx is cancelled.
func RunJobWatch(ctx context.Context, cfg JobWatchConfig) error {
	if cfg.Jobs == nil {
		return errors.New("job watch requires the job service")
	}
	runner, err := jobwatch.NewRunner(jobwatch.RunnerOptions{
		Jobs:     cfg.Jobs,
		Interval: cfg.Interval,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
