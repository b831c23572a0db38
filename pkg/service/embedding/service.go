package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDimension matches Gemini text-embedding-004
	DefaultDimension = 768

	defaultBatchSize   = 64
	defaultParallelism = 4
)

// Client produces embeddings through a gollem LLM client. The dimension is
// fixed at construction and inference has no mutable state, so a single
// instance is shared across concurrent requests.
type Client struct {
	llmClient   gollem.LLMClient
	dimension   int
	batchSize   int
	parallelism int
}

var _ interfaces.Embedder = &Client{}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithDimension overrides the embedding dimension
func WithDimension(n int) Option {
	return func(c *Client) {
		c.dimension = n
	}
}

// WithBatchSize overrides how many texts are sent per upstream call
func WithBatchSize(n int) Option {
	return func(c *Client) {
		c.batchSize = n
	}
}

// New creates an embedding client. A nil LLM client or invalid dimension is
// a startup failure: fail fast rather than on the first Embed call.
func New(llmClient gollem.LLMClient, opts ...Option) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &Client{
		llmClient:   llmClient,
		dimension:   DefaultDimension,
		batchSize:   defaultBatchSize,
		parallelism: defaultParallelism,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dimension <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dimension", c.dimension))
	}
	if c.batchSize <= 0 {
		return nil, goerr.New("batch size must be positive", goerr.V("batchSize", c.batchSize))
	}

	return c, nil
}

// Dimension returns the vector length produced by this client
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns one vector per input text, in input order. Large inputs are
// split into sub-batches embedded concurrently; each result is written back
// by index so the 1:1 correspondence holds regardless of completion order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	for i, text := range texts {
		if text == "" {
			return nil, goerr.New("cannot embed empty text", goerr.V("index", i))
		}
	}

	vectors := make([][]float32, len(texts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelism)

	for offset := 0; offset < len(texts); offset += c.batchSize {
		start := offset
		end := min(start+c.batchSize, len(texts))

		eg.Go(func() error {
			embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, texts[start:end])
			if err != nil {
				return goerr.Wrap(err, "failed to generate embeddings",
					goerr.V("offset", start), goerr.V("count", end-start))
			}
			if len(embeddings) != end-start {
				return goerr.New("embedding count does not match input count",
					goerr.V("got", len(embeddings)), goerr.V("want", end-start))
			}

			for i, emb := range embeddings {
				if len(emb) != c.dimension {
					return goerr.New("embedding dimension does not match",
						goerr.V("got", len(emb)), goerr.V("want", c.dimension))
				}
				vec := make([]float32, len(emb))
				for j, v := range emb {
					vec[j] = float32(v)
				}
				vectors[start+i] = vec
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}
