package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/service/analysis"
	"github.com/storyline-dev/storyline/pkg/service/outline"
	"github.com/storyline-dev/storyline/pkg/service/retriever"
)

// ErrNoSearchResults is returned when a query retrieves no segments to
// build an outline from
var ErrNoSearchResults = goerr.New("query matched no segments")

// StoryUseCase handles retrieval and generation over ingested transcripts
type StoryUseCase struct {
	retriever *retriever.Client
	outline   *outline.Client
	analysis  *analysis.Client
}

// NewStoryUseCase creates a new StoryUseCase instance
func NewStoryUseCase(retrieverClient *retriever.Client, outlineClient *outline.Client, analysisClient *analysis.Client) *StoryUseCase {
	return &StoryUseCase{
		retriever: retrieverClient,
		outline:   outlineClient,
		analysis:  analysisClient,
	}
}

// Search returns the segments most similar to the query, best first
func (uc *StoryUseCase) Search(ctx context.Context, query string, limit int) ([]*model.ScoredSegment, error) {
	results, err := uc.retriever.Retrieve(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search segments")
	}

	return results, nil
}

// GenerateOutline builds a structured outline over an explicit segment set
func (uc *StoryUseCase) GenerateOutline(ctx context.Context, segmentIDs []types.SegmentID, instruction string) (*model.Outline, error) {
	result, err := uc.outline.Generate(ctx, segmentIDs, instruction)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate outline")
	}

	return result, nil
}

// GenerateOutlineFromQuery retrieves the segments most relevant to a query
// and builds an outline over them
func (uc *StoryUseCase) GenerateOutlineFromQuery(ctx context.Context, query, instruction string, limit int) (*model.Outline, error) {
	results, err := uc.retriever.Retrieve(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve segments for outline")
	}
	if len(results) == 0 {
		return nil, goerr.Wrap(ErrNoSearchResults, "nothing to outline", goerr.V("query", query))
	}

	ids := make([]types.SegmentID, len(results))
	for i, r := range results {
		ids[i] = r.Segment.ID
	}

	return uc.GenerateOutline(ctx, ids, instruction)
}

// Analyze runs the three transcript analyses over a segment set. The result
// may be degraded: check Result.Degraded and Result.Failures.
func (uc *StoryUseCase) Analyze(ctx context.Context, segmentIDs []types.SegmentID) (*analysis.Result, error) {
	result, err := uc.analysis.Analyze(ctx, segmentIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze segments")
	}

	return result, nil
}
