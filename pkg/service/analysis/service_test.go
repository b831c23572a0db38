package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/repository/memory"
	"github.com/storyline-dev/storyline/pkg/service/analysis"
)

// mockLLMSession pops one canned response per generation call
type mockLLMSession struct {
	client *mockLLMClient
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	s.client.calls++
	if len(s.client.responses) == 0 {
		return &gollem.Response{Texts: []string{"{}"}}, nil
	}
	next := s.client.responses[0]
	s.client.responses = s.client.responses[1:]
	return &gollem.Response{Texts: []string{next}}, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	responses []string
	calls     int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{client: c}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func seedIndex(t *testing.T) (*memory.Index, []types.SegmentID) {
	t.Helper()
	ctx := context.Background()

	idx := memory.New()
	gt.NoError(t, idx.CreateCollection(ctx, 2)).Required()

	ids := []types.SegmentID{types.NewSegmentID()}
	gt.NoError(t, idx.Upsert(ctx, []*model.Segment{
		{
			ID: ids[0], Text: "We decided to ship the beta in March.", Vector: []float32{1, 0},
			Metadata: model.Metadata{model.MetaSourceID: "s"},
		},
	})).Required()

	return idx, ids
}

const (
	topicsJSON  = `{"topics": [{"title": "Release planning", "description": "Timing of the beta", "segment_ids": []}]}`
	momentsJSON = `{"key_moments": [{"description": "Decision to ship in March", "type": "decision", "segment_ids": []}]}`
	termsJSON   = `{"key_terms": [{"term": "beta", "definition": "Pre-release version", "segment_ids": []}]}`
)

func TestAnalyze_AllSucceed(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{topicsJSON, momentsJSON, termsJSON}}
	client, err := analysis.New(llm, idx)
	gt.NoError(t, err).Required()

	result, err := client.Analyze(ctx, ids)
	gt.NoError(t, err).Required()

	gt.Bool(t, result.Degraded()).False()
	gt.Value(t, llm.calls).Equal(3)
	gt.Array(t, result.Analysis.Topics).Length(1)
	gt.Value(t, result.Analysis.Topics[0].Title).Equal("Release planning")
	gt.Array(t, result.Analysis.KeyMoments).Length(1)
	gt.Value(t, result.Analysis.KeyMoments[0].Type).Equal("decision")
	gt.Array(t, result.Analysis.KeyTerms).Length(1)
	gt.Value(t, result.Analysis.KeyTerms[0].Term).Equal("beta")
}

func TestAnalyze_DegradedOnSingleFailure(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	// key_terms comes back malformed; the other two must survive
	llm := &mockLLMClient{responses: []string{topicsJSON, momentsJSON, "not json at all"}}
	client, err := analysis.New(llm, idx)
	gt.NoError(t, err).Required()

	result, err := client.Analyze(ctx, ids)
	gt.NoError(t, err).Required()

	gt.Bool(t, result.Degraded()).True()
	gt.Array(t, result.Analysis.Topics).Length(1)
	gt.Array(t, result.Analysis.KeyMoments).Length(1)
	gt.Array(t, result.Analysis.KeyTerms).Length(0)

	gt.Map(t, result.Failures).HasKey(types.AnalysisKeyTerms)
	failure := result.Failures[types.AnalysisKeyTerms]
	gt.Value(t, failure.RawResponse).Equal("not json at all")
	gt.String(t, failure.Reason).NotEqual("")

	_, topicsFailed := result.Failures[types.AnalysisTopics]
	gt.Bool(t, topicsFailed).False()
}

func TestAnalyze_InvalidItemOnlyFailsItsOwnKind(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	// topics parses but fails validation; moments and terms are fine
	badTopics := `{"topics": [{"title": "", "description": "untitled", "segment_ids": []}]}`
	llm := &mockLLMClient{responses: []string{badTopics, momentsJSON, termsJSON}}
	client, err := analysis.New(llm, idx)
	gt.NoError(t, err).Required()

	result, err := client.Analyze(ctx, ids)
	gt.NoError(t, err).Required()

	gt.Bool(t, result.Degraded()).True()
	gt.Map(t, result.Failures).HasKey(types.AnalysisTopics)
	gt.Value(t, len(result.Failures)).Equal(1)

	// the rejected list must not leak into the analysis
	gt.Array(t, result.Analysis.Topics).Length(0)
	gt.Array(t, result.Analysis.KeyMoments).Length(1)
	gt.Array(t, result.Analysis.KeyTerms).Length(1)
}

func TestAnalyze_StripsCodeFence(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{
		"```json\n" + topicsJSON + "\n```", momentsJSON, termsJSON,
	}}
	client, err := analysis.New(llm, idx)
	gt.NoError(t, err).Required()

	result, err := client.Analyze(ctx, ids)
	gt.NoError(t, err).Required()
	gt.Bool(t, result.Degraded()).False()
	gt.Array(t, result.Analysis.Topics).Length(1)
}

func TestAnalyze_NoValidSegments(t *testing.T) {
	ctx := context.Background()
	idx, _ := seedIndex(t)

	llm := &mockLLMClient{}
	client, err := analysis.New(llm, idx)
	gt.NoError(t, err).Required()

	_, err = client.Analyze(ctx, []types.SegmentID{types.NewSegmentID()})
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, analysis.ErrNoValidSegments)).True()
	gt.Value(t, llm.calls).Equal(0)
}

func TestAnalyze_EmptyIDSet(t *testing.T) {
	ctx := context.Background()
	idx, _ := seedIndex(t)

	client, err := analysis.New(&mockLLMClient{}, idx)
	gt.NoError(t, err).Required()

	_, err = client.Analyze(ctx, nil)
	gt.Value(t, err).NotNil()
}
