package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/mailqueue/internal/app"
	"github.com/allisson/mailqueue/internal/config"
)

// Runner is a long running background task.
type Runner interface {
	Start(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

// Start calls f(ctx).
func (f RunnerFunc) Start(ctx context.Context) error {
	return f(ctx)
}

// RunWorker runs the dispatch scheduler and the stuck request reclaimer until
// SIGINT/SIGTERM.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))
	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatchLoop, err := container.DispatchLoop(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatch loop: %w", err)
	}
	reclaimLoop, err := container.ReclaimLoop()
	if err != nil {
		return fmt.Errorf("failed to initialize reclaim loop: %w", err)
	}

	runners := []Runner{dispatchLoop, reclaimLoop}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		runners = append(runners, RunnerFunc(func(ctx context.Context) error {
			return serve(ctx, map[string]server{"metrics": metricsServer}, logger)
		}))
	}

	return runLoops(ctx, logger, runners...)
}

// runLoops runs every runner until ctx is done. The first failure stops the
// others. Cancellation is a clean stop.
func runLoops(ctx context.Context, logger *slog.Logger, runners ...Runner) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			return r.Start(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	logger.Info("worker stopped", slog.Any("error", err))
	return err
}
