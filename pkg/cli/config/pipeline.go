package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/storyline-dev/storyline/pkg/service/embedding"
	"github.com/storyline-dev/storyline/pkg/service/outline"
	"github.com/storyline-dev/storyline/pkg/service/retriever"
	"github.com/storyline-dev/storyline/pkg/service/segment"
	"github.com/urfave/cli/v3"
)

// Pipeline is the tunable pipeline configuration, loadable from a TOML
// file. Zero values fall back to the service defaults.
type Pipeline struct {
	path string

	Segmenter SegmenterConfig `toml:"segmenter"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Retriever RetrieverConfig `toml:"retriever"`
	Outline   OutlineConfig   `toml:"outline"`
}

// SegmenterConfig tunes transcript splitting
type SegmenterConfig struct {
	MinLength int `toml:"min_length"`
	MaxLength int `toml:"max_length"`
}

// EmbeddingConfig tunes the embedding client
type EmbeddingConfig struct {
	Dimension int `toml:"dimension"`
	BatchSize int `toml:"batch_size"`
}

// RetrieverConfig tunes similarity search
type RetrieverConfig struct {
	ScoreThreshold *float64 `toml:"score_threshold"`
	Limit          int      `toml:"limit"`
}

// OutlineConfig tunes outline generation retries
type OutlineConfig struct {
	MaxAttempts    int `toml:"max_attempts"`
	RetryDelaySecs int `toml:"retry_delay_seconds"`
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to pipeline configuration TOML file",
			Sources:     cli.EnvVars("STORYLINE_CONFIG"),
			Destination: &p.path,
		},
	}
}

// LogAttrs returns log attributes for the pipeline configuration
func (p *Pipeline) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("path", p.path),
		slog.Int("embedding_dimension", p.Dimension()),
	}
}

// Load reads the TOML file when one was configured. Without a file the
// defaults stay in effect.
func (p *Pipeline) Load() error {
	if p.path == "" {
		return nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(p.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", p.path))
	}

	if err := toml.Unmarshal(data, p); err != nil {
		return goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", p.path))
	}

	if err := p.Validate(); err != nil {
		return goerr.Wrap(err, "config validation failed", goerr.V("path", p.path))
	}

	return nil
}

// Validate checks the configured values
func (p *Pipeline) Validate() error {
	if p.Segmenter.MinLength < 0 || p.Segmenter.MaxLength < 0 {
		return goerr.New("segmenter lengths must not be negative")
	}
	if p.Segmenter.MaxLength > 0 && p.Segmenter.MinLength > p.Segmenter.MaxLength {
		return goerr.New("segmenter min_length exceeds max_length",
			goerr.V("min", p.Segmenter.MinLength), goerr.V("max", p.Segmenter.MaxLength))
	}
	if p.Embedding.Dimension < 0 {
		return goerr.New("embedding dimension must not be negative")
	}
	if p.Outline.MaxAttempts < 0 {
		return goerr.New("outline max_attempts must not be negative")
	}
	return nil
}

// Dimension returns the configured embedding dimension or the default
func (p *Pipeline) Dimension() int {
	if p.Embedding.Dimension > 0 {
		return p.Embedding.Dimension
	}
	return embedding.DefaultDimension
}

// SearchLimit returns the configured search limit or the default
func (p *Pipeline) SearchLimit() int {
	if p.Retriever.Limit > 0 {
		return p.Retriever.Limit
	}
	return retriever.DefaultLimit
}

// SegmenterOptions converts the configuration into segmenter options
func (p *Pipeline) SegmenterOptions() []segment.Option {
	var opts []segment.Option
	if p.Segmenter.MinLength > 0 {
		opts = append(opts, segment.WithMinLength(p.Segmenter.MinLength))
	}
	if p.Segmenter.MaxLength > 0 {
		opts = append(opts, segment.WithMaxLength(p.Segmenter.MaxLength))
	}
	return opts
}

// EmbeddingOptions converts the configuration into embedding client options
func (p *Pipeline) EmbeddingOptions() []embedding.Option {
	var opts []embedding.Option
	if p.Embedding.Dimension > 0 {
		opts = append(opts, embedding.WithDimension(p.Embedding.Dimension))
	}
	if p.Embedding.BatchSize > 0 {
		opts = append(opts, embedding.WithBatchSize(p.Embedding.BatchSize))
	}
	return opts
}

// RetrieverOptions converts the configuration into retriever options
func (p *Pipeline) RetrieverOptions() []retriever.Option {
	var opts []retriever.Option
	if p.Retriever.ScoreThreshold != nil {
		opts = append(opts, retriever.WithScoreThreshold(*p.Retriever.ScoreThreshold))
	}
	return opts
}

// OutlineOptions converts the configuration into outline client options
func (p *Pipeline) OutlineOptions() []outline.Option {
	var opts []outline.Option
	if p.Outline.MaxAttempts > 0 {
		opts = append(opts, outline.WithMaxAttempts(p.Outline.MaxAttempts))
	}
	if p.Outline.RetryDelaySecs > 0 {
		opts = append(opts, outline.WithRetryDelay(time.Duration(p.Outline.RetryDelaySecs)*time.Second))
	}
	return opts
}
