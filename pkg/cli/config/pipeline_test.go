package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/storyline-dev/storyline/pkg/cli/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storyline.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0600)).Required()
	return path
}

func TestPipelineLoad(t *testing.T) {
	path := writeConfig(t, `
[segmenter]
min_length = 10
max_length = 256

[embedding]
dimension = 1536
batch_size = 32

[retriever]
score_threshold = 0.7
limit = 10

[outline]
max_attempts = 5
retry_delay_seconds = 2
`)

	var p config.Pipeline
	p.SetPath(path)
	gt.NoError(t, p.Load()).Required()

	gt.Value(t, p.Segmenter.MinLength).Equal(10)
	gt.Value(t, p.Segmenter.MaxLength).Equal(256)
	gt.Value(t, p.Dimension()).Equal(1536)
	gt.Value(t, *p.Retriever.ScoreThreshold).Equal(0.7)
	gt.Value(t, p.SearchLimit()).Equal(10)
	gt.Array(t, p.OutlineOptions()).Length(2)
}

func TestPipelineLoad_Defaults(t *testing.T) {
	var p config.Pipeline
	gt.NoError(t, p.Load())

	gt.Value(t, p.Dimension()).Equal(768)
	gt.Value(t, p.SearchLimit()).Equal(5)
	gt.Value(t, p.Retriever.ScoreThreshold).Nil()
	gt.Array(t, p.SegmenterOptions()).Length(0)
}

func TestPipelineLoad_Invalid(t *testing.T) {
	t.Run("min exceeds max", func(t *testing.T) {
		path := writeConfig(t, `
[segmenter]
min_length = 100
max_length = 50
`)
		var p config.Pipeline
		p.SetPath(path)
		gt.Error(t, p.Load())
	})

	t.Run("broken TOML", func(t *testing.T) {
		path := writeConfig(t, "[segmenter\nmin_length = ")
		var p config.Pipeline
		p.SetPath(path)
		gt.Error(t, p.Load())
	})

	t.Run("missing file", func(t *testing.T) {
		var p config.Pipeline
		p.SetPath("/no/such/file.toml")
		gt.Error(t, p.Load())
	})
}
