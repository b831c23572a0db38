package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

// record pairs a stored segment with its insertion sequence number. The
// sequence implements the last-written-wins tie-break for equal scores.
type record struct {
	segment *model.Segment
	seq     uint64
}

// Index is an in-memory VectorIndex using cosine similarity. It is intended
// for tests and single-process deployments; the firestore package provides
// the durable implementation of the same interface.
type Index struct {
	mu        sync.RWMutex
	dimension int
	records   map[types.SegmentID]record
	nextSeq   uint64
}

var _ interfaces.VectorIndex = &Index{}

// New creates an empty in-memory index. CreateCollection must be called
// before the first upsert.
func New() *Index {
	return &Index{
		records: make(map[types.SegmentID]record),
	}
}

// CreateCollection fixes the vector dimension. Idempotent: repeated calls
// with the same dimension are no-ops.
func (x *Index) CreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return goerr.Wrap(interfaces.ErrInvalidBatch, "dimension must be positive",
			goerr.V("dimension", dimension))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = dimension
		return nil
	}
	if x.dimension != dimension {
		return goerr.Wrap(interfaces.ErrDimensionMismatch, "collection already exists with different dimension",
			goerr.V("existing", x.dimension), goerr.V("requested", dimension))
	}
	return nil
}

func (x *Index) Upsert(ctx context.Context, segments []*model.Segment) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		return goerr.Wrap(interfaces.ErrStorage, "collection not created")
	}

	// Validate the whole batch before touching the map so a bad batch is
	// rejected atomically.
	for i, seg := range segments {
		if seg == nil {
			return goerr.Wrap(interfaces.ErrInvalidBatch, "nil segment", goerr.V("index", i))
		}
		if err := seg.Validate(); err != nil {
			return goerr.Wrap(interfaces.ErrInvalidBatch, "invalid segment",
				goerr.V("index", i), goerr.V("cause", err.Error()))
		}
		if len(seg.Vector) != x.dimension {
			return goerr.Wrap(interfaces.ErrDimensionMismatch, "vector length differs from collection dimension",
				goerr.V("id", seg.ID), goerr.V("got", len(seg.Vector)), goerr.V("want", x.dimension))
		}
	}

	for _, seg := range segments {
		x.nextSeq++
		x.records[seg.ID] = record{segment: seg.Clone(), seq: x.nextSeq}
	}

	return nil
}

func (x *Index) SearchSimilar(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]*model.ScoredSegment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if limit <= 0 {
		return []*model.ScoredSegment{}, nil
	}

	type scored struct {
		segment *model.Segment
		score   float64
		seq     uint64
	}

	var candidates []scored
	for _, rec := range x.records {
		s := cosineSimilarity(queryVector, rec.segment.Vector)
		if s < scoreThreshold {
			continue
		}
		candidates = append(candidates, scored{segment: rec.segment.Clone(), score: s, seq: rec.seq})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq > candidates[j].seq
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	result := make([]*model.ScoredSegment, limit)
	for i := 0; i < limit; i++ {
		result[i] = &model.ScoredSegment{Segment: candidates[i].segment, Score: candidates[i].score}
	}

	return result, nil
}

func (x *Index) GetByID(ctx context.Context, id types.SegmentID) (*model.Segment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	rec, exists := x.records[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrSegmentNotFound, "segment not found", goerr.V("segmentID", id))
	}

	return rec.segment.Clone(), nil
}

func (x *Index) GetByIDs(ctx context.Context, ids []types.SegmentID) ([]*model.Segment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*model.Segment, 0, len(ids))
	for _, id := range ids {
		if rec, exists := x.records[id]; exists {
			result = append(result, rec.segment.Clone())
		}
	}

	return result, nil
}

func (x *Index) Delete(ctx context.Context, ids []types.SegmentID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range ids {
		delete(x.records, id)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
