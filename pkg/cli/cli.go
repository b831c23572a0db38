package cli

import (
	"context"
	"log/slog"

	"github.com/storyline-dev/storyline/pkg/cli/config"
	"github.com/storyline-dev/storyline/pkg/utils/errutil"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	flags := loggerCfg.Flags()
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "storyline",
		Usage:   "Transcript segmentation, retrieval and story generation pipeline",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logCloser, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, logCloser)

			sentryCloser, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, sentryCloser)

			logging.Default().Info("Starting storyline",
				"logger", slog.GroupValue(loggerCfg.LogAttrs()...),
				"sentry", slog.GroupValue(sentryCfg.LogAttrs()...),
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for _, closer := range closers {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdIngest(),
			cmdSearch(),
			cmdOutline(),
			cmdAnalyze(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		return errutil.Handle(ctx, err, "failed to run app")
	}

	return nil
}
