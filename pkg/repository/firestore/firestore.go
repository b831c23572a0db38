package firestore

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
)

const defaultCollection = "segments"

// Index is a Firestore-backed VectorIndex. Vectors are stored as
// firestore.Vector32 and searched with FindNearest over cosine distance.
type Index struct {
	client     *firestore.Client
	collection string

	mu        sync.RWMutex
	dimension int
}

var _ interfaces.VectorIndex = &Index{}

type Option func(*Index)

// WithCollection overrides the collection name, mainly for test isolation
func WithCollection(name string) Option {
	return func(x *Index) {
		x.collection = name
	}
}

// New creates a Firestore client and index. The client is process-wide:
// construct once and reuse across requests.
func New(ctx context.Context, projectID string, opts ...Option) (*Index, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	x := &Index{
		client:     client,
		collection: defaultCollection,
	}

	for _, opt := range opts {
		opt(x)
	}

	return x, nil
}

// Close releases the underlying Firestore client
func (x *Index) Close() error {
	return x.client.Close()
}

func (x *Index) segments() *firestore.CollectionRef {
	return x.client.Collection(x.collection)
}
