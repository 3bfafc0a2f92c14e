package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Loop runs a task on a fixed interval until its context is cancelled. The
// first run happens immediately. A run in progress is never interrupted by
// cancellation; the loop stops before the next run.
type Loop struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	logger   *slog.Logger
}

// NewLoop creates a Loop.
func NewLoop(name string, interval time.Duration, task func(ctx context.Context) error, logger *slog.Logger) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start runs the loop and returns ctx.Err() once ctx is done. Task errors are
// logged and the loop continues.
func (l *Loop) Start(ctx context.Context) error {
	if l.logger != nil {
		l.logger.Info("starting loop",
			slog.String("loop", l.name),
			slog.Duration("interval", l.interval),
		)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.run(ctx)

		select {
		case <-ctx.Done():
			if l.logger != nil {
				l.logger.Info("stopping loop", slog.String("loop", l.name))
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Loop) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := l.task(ctx); err != nil && l.logger != nil {
		l.logger.Error("loop run failed", slog.String("loop", l.name), slog.Any("error", err))
	}
}
