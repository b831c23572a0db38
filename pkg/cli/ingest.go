package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/usecase"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
	"github.com/storyline-dev/storyline/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var sourceID string
	var userID string
	var filePath string
	var flagsCfg pipelineFlags

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "source-id",
			Usage:       "Identifier of the transcript source (required)",
			Required:    true,
			Sources:     cli.EnvVars("STORYLINE_SOURCE_ID"),
			Destination: &sourceID,
		},
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "Identifier of the owning user",
			Sources:     cli.EnvVars("STORYLINE_USER_ID"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Transcript file to ingest (reads stdin when omitted)",
			Destination: &filePath,
		},
	}
	flags = append(flags, flagsCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Split a transcript, embed it and store the segments",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			transcript, err := readTranscript(ctx, filePath)
			if err != nil {
				return err
			}

			uc, closer, err := flagsCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			ids, err := uc.Ingest.ProcessTranscript(ctx, usecase.ProcessTranscriptInput{
				SourceID:   sourceID,
				UserID:     userID,
				Transcript: transcript,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to ingest transcript")
			}

			if len(ids) == 0 {
				fmt.Println("No segments produced")
				return nil
			}

			logging.Default().Info("Ingestion completed",
				"source_id", sourceID, "segments", len(ids))

			fmt.Printf("Stored %s\n", color.GreenString("%d segments", len(ids)))
			for _, id := range ids {
				fmt.Printf("  %s\n", color.HiBlackString(id.String()))
			}
			return nil
		},
	}
}

func readTranscript(ctx context.Context, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read transcript from stdin")
		}
		return string(data), nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	f, err := os.Open(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open transcript file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	data, err := io.ReadAll(f)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read transcript file", goerr.V("path", path))
	}
	return string(data), nil
}
