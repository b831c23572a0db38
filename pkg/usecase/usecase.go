package usecase

import (
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/service/analysis"
	"github.com/storyline-dev/storyline/pkg/service/outline"
	"github.com/storyline-dev/storyline/pkg/service/retriever"
	"github.com/storyline-dev/storyline/pkg/service/segment"
)

type UseCases struct {
	Ingest *IngestUseCase
	Story  *StoryUseCase
}

func New(
	segmenter *segment.Segmenter,
	embedder interfaces.Embedder,
	index interfaces.VectorIndex,
	retrieverClient *retriever.Client,
	outlineClient *outline.Client,
	analysisClient *analysis.Client,
	ingestOpts ...IngestOption,
) *UseCases {
	return &UseCases{
		Ingest: NewIngestUseCase(segmenter, embedder, index, ingestOpts...),
		Story:  NewStoryUseCase(retrieverClient, outlineClient, analysisClient),
	}
}
