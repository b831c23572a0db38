package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

// Sentinel errors shared by all VectorIndex implementations
var (
	// ErrSegmentNotFound signals an absent segment ID. Absence is a normal
	// outcome for optimistic lookups; callers check with errors.Is.
	ErrSegmentNotFound = goerr.New("segment not found")

	// ErrInvalidBatch signals a malformed upsert batch (bad segment shape,
	// mismatched slice lengths). Never retried.
	ErrInvalidBatch = goerr.New("invalid segment batch")

	// ErrDimensionMismatch signals a vector whose length differs from the
	// dimension the index was created with
	ErrDimensionMismatch = goerr.New("vector dimension mismatch")

	// ErrStorage wraps failures of the underlying storage engine. Retry, if
	// desired, belongs to the caller: upsert is idempotent per ID, so
	// re-sending the same batch is a no-op in effect.
	ErrStorage = goerr.New("vector index storage failure")
)

// VectorIndex persists segments and answers nearest-neighbor and exact-ID
// lookups. It exclusively owns segment storage; generators only read it.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	// CreateCollection prepares the backing collection for vectors of the
	// given dimension using cosine similarity. Idempotent: calling it when
	// the collection already exists is a no-op.
	CreateCollection(ctx context.Context, dimension int) error

	// Upsert writes a batch of segments in one call, overwriting any prior
	// record sharing the same ID. The batch is the atomic unit: a concurrent
	// reader never observes a transcript half-indexed.
	Upsert(ctx context.Context, segments []*model.Segment) error

	// SearchSimilar returns up to limit records with similarity >= scoreThreshold,
	// ordered by descending similarity. Ties are broken by insertion recency,
	// last written first. An empty result is not an error.
	SearchSimilar(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]*model.ScoredSegment, error)

	// GetByID returns the segment or ErrSegmentNotFound
	GetByID(ctx context.Context, id types.SegmentID) (*model.Segment, error)

	// GetByIDs returns the subset of segments that exist, in request order,
	// silently omitting unknown IDs. Callers needing strict resolution
	// compare len(result) against len(ids).
	GetByIDs(ctx context.Context, ids []types.SegmentID) ([]*model.Segment, error)

	// Delete removes segments by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []types.SegmentID) error
}
