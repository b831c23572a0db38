package interfaces

import "context"

// Embedder maps text to fixed-dimension dense vectors. Implementations are
// read-only after construction and safe for concurrent use.
type Embedder interface {
	// Embed returns one vector per input text, in input order. Output count
	// always equals input count; items are never reordered or dropped.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector length produced by this embedder. The
	// value is stable for the lifetime of the instance.
	Dimension() int
}
