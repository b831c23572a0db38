package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/cli/config"
	"github.com/storyline-dev/storyline/pkg/service/analysis"
	"github.com/storyline-dev/storyline/pkg/service/embedding"
	"github.com/storyline-dev/storyline/pkg/service/outline"
	"github.com/storyline-dev/storyline/pkg/service/retriever"
	"github.com/storyline-dev/storyline/pkg/service/segment"
	"github.com/storyline-dev/storyline/pkg/usecase"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// pipelineFlags bundles the configuration shared by all pipeline commands
type pipelineFlags struct {
	gemini   config.Gemini
	index    config.Index
	pipeline config.Pipeline
}

func (p *pipelineFlags) Flags() []cli.Flag {
	flags := p.gemini.Flags()
	flags = append(flags, p.index.Flags()...)
	flags = append(flags, p.pipeline.Flags()...)
	return flags
}

// Configure wires the full pipeline: LLM client, vector index, segmenter,
// embedder, retriever and generators. The returned closer releases the
// index backend.
func (p *pipelineFlags) Configure(ctx context.Context) (*usecase.UseCases, func(), error) {
	if err := p.pipeline.Load(); err != nil {
		return nil, nil, err
	}

	logging.From(ctx).Info("Configuring pipeline",
		"gemini", slog.GroupValue(p.gemini.LogAttrs()...),
		"index", slog.GroupValue(p.index.LogAttrs()...),
		"pipeline", slog.GroupValue(p.pipeline.LogAttrs()...),
	)

	llmClient, err := p.gemini.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure LLM client")
	}

	index, closer, err := p.index.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure vector index")
	}

	embedder, err := embedding.New(llmClient, p.pipeline.EmbeddingOptions()...)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure embedder")
	}

	if err := index.CreateCollection(ctx, embedder.Dimension()); err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to prepare vector collection")
	}

	segmenter, err := segment.New(p.pipeline.SegmenterOptions()...)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure segmenter")
	}

	retrieverClient, err := retriever.New(embedder, index, p.pipeline.RetrieverOptions()...)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure retriever")
	}

	outlineClient, err := outline.New(llmClient, index, p.pipeline.OutlineOptions()...)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure outline generator")
	}

	analysisClient, err := analysis.New(llmClient, index)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure analyzer")
	}

	uc := usecase.New(segmenter, embedder, index, retrieverClient, outlineClient, analysisClient)

	return uc, closer, nil
}
