package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

// Metadata is an open mapping of string keys to scalar values attached to
// a segment (source identifier, owning user, ordinal position, timestamps).
// Values are restricted to scalars so the payload stays serializable.
type Metadata map[string]any

// Well-known metadata keys written by the ingestion pipeline
const (
	MetaSourceID    = "source_id"
	MetaUserID      = "user_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaIngestedAt  = "ingested_at"
	MetaUpdatedAt   = "updated_at"
)

// Validate checks that all metadata values are scalar types
func (m Metadata) Validate() error {
	for key, value := range m {
		if key == "" {
			return goerr.New("metadata key is empty")
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64, time.Time:
		default:
			return goerr.New("metadata value must be a scalar",
				goerr.V("key", key), goerr.V("value", value))
		}
	}
	return nil
}

// Clone returns a copy of the metadata map
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	copied := make(Metadata, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}

// Segment is the atomic retrievable unit of a transcript: a bounded piece
// of text together with its embedding vector. Text and vector are only ever
// replaced together so a reader never observes a stale pairing.
type Segment struct {
	ID       types.SegmentID
	Text     string
	Vector   []float32
	Metadata Metadata
}

// Validate checks the structural invariants of a segment
func (s *Segment) Validate() error {
	if err := s.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid segment ID")
	}
	if s.Text == "" {
		return goerr.New("segment text is empty", goerr.V("id", s.ID))
	}
	if len(s.Vector) == 0 {
		return goerr.New("segment vector is empty", goerr.V("id", s.ID))
	}
	if err := s.Metadata.Validate(); err != nil {
		return goerr.Wrap(err, "invalid segment metadata", goerr.V("id", s.ID))
	}
	return nil
}

// Clone returns a deep copy of the segment
func (s *Segment) Clone() *Segment {
	copied := &Segment{
		ID:       s.ID,
		Text:     s.Text,
		Metadata: s.Metadata.Clone(),
	}
	if s.Vector != nil {
		copied.Vector = make([]float32, len(s.Vector))
		copy(copied.Vector, s.Vector)
	}
	return copied
}

// ScoredSegment is a segment paired with its similarity score against a query
type ScoredSegment struct {
	Segment *Segment
	Score   float64
}

// NewSegmentBatch zips parallel slices of ids, vectors, texts and metadata
// into segments. All four slices must have equal length.
func NewSegmentBatch(ids []types.SegmentID, vectors [][]float32, texts []string, metadata []Metadata) ([]*Segment, error) {
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metadata) {
		return nil, goerr.New("batch slice lengths do not match",
			goerr.V("ids", len(ids)),
			goerr.V("vectors", len(vectors)),
			goerr.V("texts", len(texts)),
			goerr.V("metadata", len(metadata)))
	}

	segments := make([]*Segment, 0, len(ids))
	for i := range ids {
		seg := &Segment{
			ID:       ids[i],
			Text:     texts[i],
			Vector:   vectors[i],
			Metadata: metadata[i],
		}
		if err := seg.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid segment in batch", goerr.V("index", i))
		}
		segments = append(segments, seg)
	}

	return segments, nil
}
