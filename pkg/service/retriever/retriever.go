package retriever

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
)

const (
	// DefaultLimit is how many segments a query returns when the caller
	// does not specify a limit
	DefaultLimit = 5

	// DefaultScoreThreshold excludes low-relevance noise by default. This
	// is a product default, not an invariant: tune it per deployment with
	// WithScoreThreshold.
	DefaultScoreThreshold = 0.5
)

// Client turns a free-text query into a ranked set of segments by embedding
// the query and searching the vector index
type Client struct {
	embedder  interfaces.Embedder
	index     interfaces.VectorIndex
	threshold float64
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithScoreThreshold overrides the minimum similarity score
func WithScoreThreshold(threshold float64) Option {
	return func(c *Client) {
		c.threshold = threshold
	}
}

// New creates a retriever over the given embedder and index
func New(embedder interfaces.Embedder, index interfaces.VectorIndex, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if index == nil {
		return nil, goerr.New("vector index is required")
	}

	c := &Client{
		embedder:  embedder,
		index:     index,
		threshold: DefaultScoreThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Retrieve returns up to limit segments ranked by similarity to the query.
// A non-positive limit falls back to DefaultLimit.
func (c *Client) Retrieve(ctx context.Context, query string, limit int) ([]*model.ScoredSegment, error) {
	if query == "" {
		return nil, goerr.New("query is empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	results, err := c.index.SearchSimilar(ctx, vectors[0], limit, c.threshold)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search similar segments")
	}

	logging.From(ctx).Debug("retrieved segments",
		"query_len", len(query), "limit", limit, "hits", len(results))

	return results, nil
}
