package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// distanceField is where FindNearest writes the cosine distance of each hit
const distanceField = "vector_distance"

// segmentDoc is the Firestore document representation of model.Segment.
// Embedding is stored as firestore.Vector32 for FindNearest vector search.
type segmentDoc struct {
	ID         string             `firestore:"ID"`
	Text       string             `firestore:"Text"`
	Embedding  firestore.Vector32 `firestore:"Embedding"`
	Metadata   map[string]any     `firestore:"Metadata"`
	UpsertedAt time.Time          `firestore:"UpsertedAt"`
}

func toSegmentDoc(s *model.Segment) *segmentDoc {
	return &segmentDoc{
		ID:         string(s.ID),
		Text:       s.Text,
		Embedding:  firestore.Vector32(s.Vector),
		Metadata:   map[string]any(s.Metadata),
		UpsertedAt: time.Now().UTC(),
	}
}

func fromSegmentDoc(d *segmentDoc) *model.Segment {
	return &model.Segment{
		ID:       types.SegmentID(d.ID),
		Text:     d.Text,
		Vector:   []float32(d.Embedding),
		Metadata: model.Metadata(d.Metadata),
	}
}

// CreateCollection records the vector dimension for upsert validation.
// Firestore collections come into existence with their first document, so
// there is nothing to provision here; the vector index itself is managed by
// the migrate command. Idempotent by construction.
func (x *Index) CreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return goerr.Wrap(interfaces.ErrInvalidBatch, "dimension must be positive",
			goerr.V("dimension", dimension))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension != 0 && x.dimension != dimension {
		return goerr.Wrap(interfaces.ErrDimensionMismatch, "collection already exists with different dimension",
			goerr.V("existing", x.dimension), goerr.V("requested", dimension))
	}
	x.dimension = dimension
	return nil
}

func (x *Index) Upsert(ctx context.Context, segments []*model.Segment) error {
	x.mu.RLock()
	dimension := x.dimension
	x.mu.RUnlock()

	if dimension == 0 {
		return goerr.Wrap(interfaces.ErrStorage, "collection not created")
	}

	for i, seg := range segments {
		if seg == nil {
			return goerr.Wrap(interfaces.ErrInvalidBatch, "nil segment", goerr.V("index", i))
		}
		if err := seg.Validate(); err != nil {
			return goerr.Wrap(interfaces.ErrInvalidBatch, "invalid segment",
				goerr.V("index", i), goerr.V("cause", err.Error()))
		}
		if len(seg.Vector) != dimension {
			return goerr.Wrap(interfaces.ErrDimensionMismatch, "vector length differs from collection dimension",
				goerr.V("id", seg.ID), goerr.V("got", len(seg.Vector)), goerr.V("want", dimension))
		}
	}

	// One BulkWriter flush per transcript so a reader does not observe a
	// half-indexed batch for longer than the flush itself.
	bw := x.client.BulkWriter(ctx)
	jobs := make(map[types.SegmentID]*firestore.BulkWriterJob, len(segments))
	for _, seg := range segments {
		docRef := x.segments().Doc(string(seg.ID))
		job, err := bw.Set(docRef, toSegmentDoc(seg))
		if err != nil {
			return goerr.Wrap(interfaces.ErrStorage, "failed to enqueue segment write",
				goerr.V("segmentID", seg.ID), goerr.V("cause", err.Error()))
		}
		jobs[seg.ID] = job
	}
	bw.End()

	// End only flushes; per-write errors surface through the jobs
	for id, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(interfaces.ErrStorage, "failed to write segment",
				goerr.V("segmentID", id), goerr.V("cause", err.Error()))
		}
	}

	return nil
}

func (x *Index) SearchSimilar(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]*model.ScoredSegment, error) {
	if limit <= 0 {
		return []*model.ScoredSegment{}, nil
	}

	vq := x.segments().FindNearest("Embedding", firestore.Vector32(queryVector), limit,
		firestore.DistanceMeasureCosine, &firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := make([]*model.ScoredSegment, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(interfaces.ErrStorage, "failed to iterate vector search results",
				goerr.V("cause", err.Error()))
		}

		var d segmentDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(interfaces.ErrStorage, "failed to unmarshal segment from vector search",
				goerr.V("cause", err.Error()))
		}

		// Cosine distance is 1 - cosine similarity
		score := 0.0
		if raw, ok := doc.Data()[distanceField].(float64); ok {
			score = 1.0 - raw
		}
		if score < scoreThreshold {
			continue
		}

		results = append(results, &model.ScoredSegment{Segment: fromSegmentDoc(&d), Score: score})
	}

	return results, nil
}

func (x *Index) GetByID(ctx context.Context, id types.SegmentID) (*model.Segment, error) {
	doc, err := x.segments().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrSegmentNotFound, "segment not found", goerr.V("segmentID", id))
		}
		return nil, goerr.Wrap(interfaces.ErrStorage, "failed to get segment",
			goerr.V("segmentID", id), goerr.V("cause", err.Error()))
	}

	var d segmentDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(interfaces.ErrStorage, "failed to unmarshal segment",
			goerr.V("segmentID", id), goerr.V("cause", err.Error()))
	}

	return fromSegmentDoc(&d), nil
}

func (x *Index) GetByIDs(ctx context.Context, ids []types.SegmentID) ([]*model.Segment, error) {
	if len(ids) == 0 {
		return []*model.Segment{}, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, x.segments().Doc(string(id)))
	}

	docs, err := x.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrStorage, "failed to get segments",
			goerr.V("cause", err.Error()))
	}

	// GetAll preserves request order; missing documents are silently omitted
	result := make([]*model.Segment, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var d segmentDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(interfaces.ErrStorage, "failed to unmarshal segment",
				goerr.V("cause", err.Error()))
		}
		result = append(result, fromSegmentDoc(&d))
	}

	return result, nil
}

func (x *Index) Delete(ctx context.Context, ids []types.SegmentID) error {
	bw := x.client.BulkWriter(ctx)
	jobs := make(map[types.SegmentID]*firestore.BulkWriterJob, len(ids))
	for _, id := range ids {
		job, err := bw.Delete(x.segments().Doc(string(id)))
		if err != nil {
			return goerr.Wrap(interfaces.ErrStorage, "failed to enqueue segment delete",
				goerr.V("segmentID", id), goerr.V("cause", err.Error()))
		}
		jobs[id] = job
	}
	bw.End()

	for id, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(interfaces.ErrStorage, "failed to delete segment",
				goerr.V("segmentID", id), goerr.V("cause", err.Error()))
		}
	}
	return nil
}
