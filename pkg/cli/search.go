package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var limit int
	var flagsCfg pipelineFlags

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of segments to return (0 uses the configured default)",
			Destination: &limit,
		},
	}
	flags = append(flags, flagsCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search stored segments by semantic similarity",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

			uc, closer, err := flagsCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if limit <= 0 {
				limit = flagsCfg.pipeline.SearchLimit()
			}

			results, err := uc.Story.Search(ctx, query, limit)
			if err != nil {
				return goerr.Wrap(err, "failed to search")
			}

			if len(results) == 0 {
				fmt.Println("No matching segments")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%s %s %s\n",
					color.CyanString("%2d.", i+1),
					color.YellowString("%.3f", r.Score),
					color.HiBlackString(r.Segment.ID.String()))
				fmt.Printf("    %s\n", r.Segment.Text)
			}
			return nil
		},
	}
}
