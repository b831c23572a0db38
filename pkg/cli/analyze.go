package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/service/analysis"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdAnalyze() *cli.Command {
	var query string
	var segmentIDs []string
	var limit int
	var flagsCfg pipelineFlags

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Retrieve segments matching this query and analyze them",
			Destination: &query,
		},
		&cli.StringSliceFlag{
			Name:        "segment-id",
			Usage:       "Explicit segment IDs to analyze (repeatable, overrides --query)",
			Destination: &segmentIDs,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of segments to retrieve for --query",
			Destination: &limit,
		},
	}
	flags = append(flags, flagsCfg.Flags()...)

	return &cli.Command{
		Name:    "analyze",
		Aliases: []string{"a"},
		Usage:   "Extract topics, key moments and key terms from stored segments",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if query == "" && len(segmentIDs) == 0 {
				return goerr.New("either --query or --segment-id is required")
			}

			uc, closer, err := flagsCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			ids, err := parseSegmentIDs(segmentIDs)
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				if limit <= 0 {
					limit = flagsCfg.pipeline.SearchLimit()
				}
				results, err := uc.Story.Search(ctx, query, limit)
				if err != nil {
					return goerr.Wrap(err, "failed to retrieve segments")
				}
				for _, r := range results {
					ids = append(ids, r.Segment.ID)
				}
				if len(ids) == 0 {
					fmt.Println("No matching segments")
					return nil
				}
			}

			result, err := uc.Story.Analyze(ctx, ids)
			if err != nil {
				return goerr.Wrap(err, "failed to analyze segments")
			}

			renderAnalysis(result)

			if result.Degraded() {
				logging.Default().Warn("analysis partially failed",
					"failed_kinds", len(result.Failures))
			}
			return nil
		},
	}
}

func renderAnalysis(result *analysis.Result) {
	heading := color.New(color.Bold, color.FgCyan)

	heading.Println("Topics")
	for _, topic := range result.Analysis.Topics {
		fmt.Printf("  - %s: %s\n", color.New(color.Bold).Sprint(topic.Title), topic.Description)
	}

	fmt.Println()
	heading.Println("Key moments")
	for _, moment := range result.Analysis.KeyMoments {
		fmt.Printf("  - [%s] %s\n", color.YellowString(moment.Type), moment.Description)
	}

	fmt.Println()
	heading.Println("Key terms")
	for _, term := range result.Analysis.KeyTerms {
		fmt.Printf("  - %s: %s\n", color.New(color.Bold).Sprint(term.Term), term.Definition)
	}

	for _, kind := range types.AllAnalysisKinds() {
		failure, ok := result.Failures[kind]
		if !ok {
			continue
		}
		fmt.Println()
		color.Red("%s analysis failed: %s", kind, failure.Reason)
		if failure.RawResponse != "" {
			fmt.Printf("  raw response: %s\n", color.HiBlackString(failure.RawResponse))
		}
	}
}
