package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/repository/firestore"
	"github.com/storyline-dev/storyline/pkg/repository/memory"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Index holds CLI flags for vector index backend configuration
type Index struct {
	backend    string
	projectID  string
	collection string
}

// Flags returns CLI flags for index configuration
func (x *Index) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index-backend",
			Usage:       "Vector index backend (firestore or memory)",
			Value:       "firestore",
			Sources:     cli.EnvVars("STORYLINE_INDEX_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("STORYLINE_FIRESTORE_PROJECT_ID"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding segments",
			Sources:     cli.EnvVars("STORYLINE_FIRESTORE_COLLECTION"),
			Destination: &x.collection,
		},
	}
}

// LogAttrs returns log attributes for the index configuration
func (x *Index) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("backend", x.backend),
		slog.String("project_id", x.projectID),
	}
}

// ProjectID returns the Firestore project ID
func (x *Index) ProjectID() string {
	return x.projectID
}

// Configure initializes and returns a vector index based on the configured
// backend. The returned closer releases the backing client.
func (x *Index) Configure(ctx context.Context) (interfaces.VectorIndex, func(), error) {
	switch x.backend {
	case "firestore":
		if x.projectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required when using firestore backend")
		}

		var opts []firestore.Option
		if x.collection != "" {
			opts = append(opts, firestore.WithCollection(x.collection))
		}

		index, err := firestore.New(ctx, x.projectID, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize firestore index")
		}

		logging.Default().Info("Using Firestore vector index",
			"project_id", x.projectID,
			"collection", x.collection)

		closer := func() {
			if err := index.Close(); err != nil {
				logging.Default().Error("failed to close firestore index", "error", err.Error())
			}
		}
		return index, closer, nil

	case "memory":
		logging.Default().Info("Using in-memory vector index (development mode)")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, goerr.New("invalid index backend", goerr.V("backend", x.backend))
	}
}
