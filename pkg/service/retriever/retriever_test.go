package retriever_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/repository/memory"
	"github.com/storyline-dev/storyline/pkg/service/embedding"
	"github.com/storyline-dev/storyline/pkg/service/retriever"
)

// mockLLMClient embeds any query as a fixed direction
type mockLLMClient struct {
	queryVector []float64
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	result := make([][]float64, len(input))
	for i := range input {
		result[i] = c.queryVector
	}
	return result, nil
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, opts ...retriever.Option) *retriever.Client {
		t.Helper()

		idx := memory.New()
		gt.NoError(t, idx.CreateCollection(ctx, 3)).Required()
		gt.NoError(t, idx.Upsert(ctx, []*model.Segment{
			{
				ID: types.NewSegmentID(), Text: "about dragons", Vector: []float32{1, 0, 0},
				Metadata: model.Metadata{model.MetaSourceID: "s"},
			},
			{
				ID: types.NewSegmentID(), Text: "about cooking", Vector: []float32{0, 1, 0},
				Metadata: model.Metadata{model.MetaSourceID: "s"},
			},
		})).Required()

		embedder, err := embedding.New(&mockLLMClient{queryVector: []float64{1, 0, 0}},
			embedding.WithDimension(3))
		gt.NoError(t, err).Required()

		client, err := retriever.New(embedder, idx, opts...)
		gt.NoError(t, err).Required()
		return client
	}

	t.Run("returns segments above threshold ranked by score", func(t *testing.T) {
		client := setup(t)

		results, err := client.Retrieve(ctx, "tell me about dragons", 5)
		gt.NoError(t, err).Required()

		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].Segment.Text).Equal("about dragons")
		gt.Bool(t, results[0].Score >= retriever.DefaultScoreThreshold).True()
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		client := setup(t, retriever.WithScoreThreshold(-1))

		results, err := client.Retrieve(ctx, "anything", 5)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		client := setup(t)

		_, err := client.Retrieve(ctx, "", 5)
		gt.Value(t, err).NotNil()
	})
}

func TestNew_RequiresDependencies(t *testing.T) {
	idx := memory.New()
	embedder, err := embedding.New(&mockLLMClient{}, embedding.WithDimension(3))
	gt.NoError(t, err).Required()

	_, err = retriever.New(nil, idx)
	gt.Value(t, err).NotNil()

	_, err = retriever.New(embedder, nil)
	gt.Value(t, err).NotNil()
}
