package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/service/segment"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
)

// ErrTranscriberNotConfigured is returned when audio ingestion is requested
// without a transcriber
var ErrTranscriberNotConfigured = goerr.New("transcriber is not configured")

// IngestUseCase handles the transcript ingestion pipeline: splitting raw
// text into segments, embedding them and writing them to the vector index
type IngestUseCase struct {
	segmenter   *segment.Segmenter
	embedder    interfaces.Embedder
	index       interfaces.VectorIndex
	transcriber interfaces.Transcriber
}

// IngestOption configures an IngestUseCase
type IngestOption func(*IngestUseCase)

// WithTranscriber enables audio ingestion
func WithTranscriber(t interfaces.Transcriber) IngestOption {
	return func(uc *IngestUseCase) {
		uc.transcriber = t
	}
}

// NewIngestUseCase creates a new IngestUseCase instance
func NewIngestUseCase(segmenter *segment.Segmenter, embedder interfaces.Embedder, index interfaces.VectorIndex, opts ...IngestOption) *IngestUseCase {
	uc := &IngestUseCase{
		segmenter: segmenter,
		embedder:  embedder,
		index:     index,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessTranscriptInput represents input for ingesting one transcript
type ProcessTranscriptInput struct {
	SourceID   string
	UserID     string
	Transcript string
}

// ProcessTranscript splits a transcript into segments, embeds them and
// stores the whole batch in a single upsert. A transcript with no usable
// text yields no segments and no error.
func (uc *IngestUseCase) ProcessTranscript(ctx context.Context, input ProcessTranscriptInput) ([]types.SegmentID, error) {
	if input.SourceID == "" {
		return nil, goerr.New("source ID is required")
	}

	chunks := uc.segmenter.Split(input.Transcript)
	if len(chunks) == 0 {
		logging.From(ctx).Info("transcript produced no segments",
			"source_id", input.SourceID)
		return nil, nil
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed transcript segments",
			goerr.V("source_id", input.SourceID), goerr.V("chunks", len(chunks)))
	}

	ingestedAt := time.Now().UTC()
	ids := make([]types.SegmentID, len(chunks))
	metadata := make([]model.Metadata, len(chunks))
	for i := range chunks {
		ids[i] = types.NewSegmentID()
		metadata[i] = model.Metadata{
			model.MetaSourceID:    input.SourceID,
			model.MetaChunkIndex:  i,
			model.MetaTotalChunks: len(chunks),
			model.MetaIngestedAt:  ingestedAt,
		}
		if input.UserID != "" {
			metadata[i][model.MetaUserID] = input.UserID
		}
	}

	segments, err := model.NewSegmentBatch(ids, vectors, chunks, metadata)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build segment batch",
			goerr.V("source_id", input.SourceID))
	}

	// The batch write runs to completion once started, so a cancelled
	// caller cannot leave a half-ingested transcript behind.
	if err := uc.index.Upsert(context.WithoutCancel(ctx), segments); err != nil {
		return nil, goerr.Wrap(err, "failed to store segments",
			goerr.V("source_id", input.SourceID), goerr.V("count", len(segments)))
	}

	logging.From(ctx).Info("transcript ingested",
		"source_id", input.SourceID,
		"segments", len(segments))

	return ids, nil
}

// ProcessAudioInput represents input for ingesting recorded audio
type ProcessAudioInput struct {
	SourceID string
	UserID   string
	Audio    []byte
}

// ProcessAudio transcribes recorded audio and ingests the resulting
// transcript. Requires a transcriber configured via WithTranscriber.
func (uc *IngestUseCase) ProcessAudio(ctx context.Context, input ProcessAudioInput) ([]types.SegmentID, error) {
	if uc.transcriber == nil {
		return nil, ErrTranscriberNotConfigured
	}
	if len(input.Audio) == 0 {
		return nil, goerr.New("audio payload is empty", goerr.V("source_id", input.SourceID))
	}

	transcript, err := uc.transcriber.Transcribe(ctx, input.Audio)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to transcribe audio",
			goerr.V("source_id", input.SourceID), goerr.V("bytes", len(input.Audio)))
	}

	return uc.ProcessTranscript(ctx, ProcessTranscriptInput{
		SourceID:   input.SourceID,
		UserID:     input.UserID,
		Transcript: transcript,
	})
}

// UpdateSegment replaces the text of an existing segment. The new text is
// re-embedded and text and vector are written back in one upsert so readers
// never observe the new text with the old vector.
func (uc *IngestUseCase) UpdateSegment(ctx context.Context, id types.SegmentID, newText string) (*model.Segment, error) {
	if newText == "" {
		return nil, goerr.New("replacement text is empty", goerr.V("id", id))
	}

	seg, err := uc.index.GetByID(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load segment", goerr.V("id", id))
	}

	vectors, err := uc.embedder.Embed(ctx, []string{newText})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed replacement text", goerr.V("id", id))
	}

	updated := seg.Clone()
	updated.Text = newText
	updated.Vector = vectors[0]
	if updated.Metadata == nil {
		updated.Metadata = model.Metadata{}
	}
	updated.Metadata[model.MetaUpdatedAt] = time.Now().UTC()

	if err := uc.index.Upsert(context.WithoutCancel(ctx), []*model.Segment{updated}); err != nil {
		return nil, goerr.Wrap(err, "failed to store updated segment", goerr.V("id", id))
	}

	return updated, nil
}

// DeleteSegments removes segments from the index. Missing IDs are ignored.
func (uc *IngestUseCase) DeleteSegments(ctx context.Context, ids []types.SegmentID) error {
	if len(ids) == 0 {
		return nil
	}

	if err := uc.index.Delete(ctx, ids); err != nil {
		return goerr.Wrap(err, "failed to delete segments", goerr.V("count", len(ids)))
	}

	return nil
}
