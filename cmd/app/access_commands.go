package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/accessgate/cmd/app/commands"
	"github.com/allisson/accessgate/internal/app"
	"github.com/allisson/accessgate/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getAccessCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "sweep-assignments",
			Usage: "Expire role assignments and share grants past their expiry",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				sweeper, err := container.Sweeper(ctx)
				if err != nil {
					return err
				}

				return commands.RunSweepAssignments(
					ctx,
					sweeper,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "review-roles",
			Usage: "List role assignments due for their periodic review",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				assignmentUseCase, err := container.AssignmentUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunReviewRoles(
					ctx,
					assignmentUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					time.Now().UTC(),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "classify",
			Usage: "Suggest a security label for text (reads stdin when --text is omitted)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "text",
					Aliases: []string{"t"},
					Usage:   "Text to classify",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				classifier, err := container.Classifier()
				if err != nil {
					return err
				}

				return commands.RunClassify(
					classifier,
					commands.DefaultIO(),
					cmd.String("text"),
					cmd.String("format"),
				)
			},
		},
	}
}
