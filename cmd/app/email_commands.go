package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/mailqueue/cmd/app/commands"
	"github.com/allisson/mailqueue/internal/app"
	"github.com/allisson/mailqueue/internal/config"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Value:   "text",
	Usage:   "Output format: 'text' or 'json'",
}

// withContainer loads and validates configuration, runs fn and releases the container.
func withContainer(ctx context.Context, fn func(container *app.Container) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()
	return fn(container)
}

func getEmailCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "dispatch-once",
			Usage: "Claim one batch of due requests and publish it",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					dispatchUseCase, err := container.DispatchUseCase(ctx)
					if err != nil {
						return err
					}
					return commands.RunDispatchOnce(
						ctx,
						dispatchUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "reclaim-once",
			Usage: "Return requests stuck in Processing to Pending",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					reclaimUseCase, err := container.ReclaimUseCase()
					if err != nil {
						return err
					}
					return commands.RunReclaimOnce(
						ctx,
						reclaimUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "topic-stats",
			Usage: "Show request and result counts for a topic",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "topic",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Topic identifier",
				},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					statsUseCase, err := container.StatsUseCase()
					if err != nil {
						return err
					}
					return commands.RunTopicStats(
						ctx,
						statsUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("topic"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "window-counts",
			Usage: "Show sent, failed and result counts for the last N hours",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "hours",
					Value: 24,
					Usage: "Window size in hours (1-168)",
				},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					statsUseCase, err := container.StatsUseCase()
					if err != nil {
						return err
					}
					return commands.RunWindowCounts(
						ctx,
						statsUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("hours")),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
