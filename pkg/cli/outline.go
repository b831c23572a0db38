package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdOutline() *cli.Command {
	var query string
	var segmentIDs []string
	var instruction string
	var limit int
	var asJSON bool
	var flagsCfg pipelineFlags

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Retrieve segments matching this query and outline them",
			Destination: &query,
		},
		&cli.StringSliceFlag{
			Name:        "segment-id",
			Usage:       "Explicit segment IDs to outline (repeatable, overrides --query)",
			Destination: &segmentIDs,
		},
		&cli.StringFlag{
			Name:        "instruction",
			Usage:       "Extra instruction for the outline generator",
			Destination: &instruction,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of segments to retrieve for --query",
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Emit the outline as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, flagsCfg.Flags()...)

	return &cli.Command{
		Name:    "outline",
		Aliases: []string{"o"},
		Usage:   "Generate a structured story outline from stored segments",
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

			if limit <= 0 {
				limit = flagsCfg.pipeline.SearchLimit()
			}

			var result *model.Outline
			if len(segmentIDs) > 0 {
				ids, err := parseSegmentIDs(segmentIDs)
				if err != nil {
					return err
				}
				result, err = uc.Story.GenerateOutline(ctx, ids, instruction)
				if err != nil {
					return goerr.Wrap(err, "failed to generate outline")
				}
			} else {
				result, err = uc.Story.GenerateOutlineFromQuery(ctx, query, instruction, limit)
				if err != nil {
					return goerr.Wrap(err, "failed to generate outline")
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			renderOutline(result)
			return nil
		},
	}
}

func renderOutline(o *model.Outline) {
	title := color.New(color.Bold, color.FgCyan)
	heading := color.New(color.Bold)

	title.Println(o.Title)
	for _, section := range o.Sections {
		fmt.Println()
		heading.Printf("## %s\n", section.Heading)
		for _, point := range section.Points {
			fmt.Printf("  - %s\n", point.Text)
			if len(point.SegmentIDs) > 0 {
				fmt.Printf("    %s\n", color.HiBlackString("cites: %s", joinIDs(point.SegmentIDs)))
			}
		}
	}
}

func parseSegmentIDs(raw []string) ([]types.SegmentID, error) {
	ids := make([]types.SegmentID, len(raw))
	for i, s := range raw {
		id := types.SegmentID(s)
		if err := id.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid segment ID", goerr.V("input", s))
		}
		ids[i] = id
	}
	return ids, nil
}

func joinIDs(ids []types.SegmentID) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id.String()
	}
	return out
}
