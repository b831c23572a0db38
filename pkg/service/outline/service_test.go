package outline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/repository/memory"
	"github.com/storyline-dev/storyline/pkg/service/outline"
)

// mockLLMSession replays canned responses, one per generation call
type mockLLMSession struct {
	client *mockLLMClient
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	s.client.calls++
	if len(s.client.responses) == 0 {
		return &gollem.Response{Texts: []string{"{}"}}, nil
	}
	next := s.client.responses[0]
	if len(s.client.responses) > 1 {
		s.client.responses = s.client.responses[1:]
	}
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

// mockLLMClient is a mock gollem LLMClient for testing. The last response
// repeats once the queue is exhausted.
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

	ids := []types.SegmentID{types.NewSegmentID(), types.NewSegmentID()}
	gt.NoError(t, idx.Upsert(ctx, []*model.Segment{
		{
			ID: ids[0], Text: "Harry got his letter.", Vector: []float32{1, 0},
			Metadata: model.Metadata{model.MetaSourceID: "s"},
		},
		{
			ID: ids[1], Text: "He went to Hogwarts.", Vector: []float32{0, 1},
			Metadata: model.Metadata{model.MetaSourceID: "s"},
		},
	})).Required()

	return idx, ids
}

func validOutlineJSON(ids []types.SegmentID) string {
	return fmt.Sprintf(`{
		"title": "The Letter",
		"sections": [
			{
				"heading": "Beginnings",
				"points": [
					{"text": "Harry receives his invitation", "segment_ids": ["%s"]},
					{"text": "The journey to school", "segment_ids": ["%s"]}
				]
			}
		]
	}`, ids[0], ids[1])
}

func TestGenerate_Success(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{validOutlineJSON(ids)}}
	client, err := outline.New(llm, idx)
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, ids, "")
	gt.NoError(t, err).Required()

	gt.Value(t, got.Title).Equal("The Letter")
	gt.Array(t, got.Sections).Length(1)
	gt.Array(t, got.Sections[0].Points).Length(2)
	gt.Value(t, llm.calls).Equal(1)
}

func TestGenerate_StripsCodeFence(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	fenced := "```json\n" + validOutlineJSON(ids) + "\n```"
	llm := &mockLLMClient{responses: []string{fenced}}
	client, err := outline.New(llm, idx)
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, ids, "")
	gt.NoError(t, err).Required()
	gt.Value(t, got.Title).Equal("The Letter")
}

func TestGenerate_RetriesOnParseFailure(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{"not json", validOutlineJSON(ids)}}

	var delays []time.Duration
	client, err := outline.New(llm, idx,
		outline.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, ids, "")
	gt.NoError(t, err).Required()
	gt.Value(t, got.Title).Equal("The Letter")
	gt.Value(t, llm.calls).Equal(2)
	gt.Array(t, delays).Equal([]time.Duration{time.Second})
}

func TestGenerate_RetriesOnSchemaViolation(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	// Parses fine but has no title, so schema validation rejects it
	invalid := fmt.Sprintf(`{"title": "", "sections": [{"heading": "H", "points": [{"text": "p", "segment_ids": ["%s"]}]}]}`, ids[0])
	llm := &mockLLMClient{responses: []string{invalid, validOutlineJSON(ids)}}

	client, err := outline.New(llm, idx,
		outline.WithSleepFunc(func(ctx context.Context, d time.Duration) error { return nil }))
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, ids, "")
	gt.NoError(t, err).Required()
	gt.Value(t, got.Title).Equal("The Letter")
	gt.Value(t, llm.calls).Equal(2)
}

func TestGenerate_RetriesOnForeignCitation(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	foreign := `{"title": "T", "sections": [{"heading": "H", "points": [{"text": "p", "segment_ids": ["not-in-context"]}]}]}`
	llm := &mockLLMClient{responses: []string{foreign, validOutlineJSON(ids)}}

	client, err := outline.New(llm, idx,
		outline.WithSleepFunc(func(ctx context.Context, d time.Duration) error { return nil }))
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, ids, "")
	gt.NoError(t, err).Required()
	gt.Value(t, llm.calls).Equal(2)
	gt.Value(t, got.Title).Equal("The Letter")
}

func TestGenerate_ExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{"not json"}}

	var delays []time.Duration
	client, err := outline.New(llm, idx,
		outline.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	gt.NoError(t, err).Required()

	_, err = client.Generate(ctx, ids, "")
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, outline.ErrGenerationFailed)).True()

	// Exactly maxAttempts generation calls and two doubling backoffs between them
	gt.Value(t, llm.calls).Equal(outline.DefaultMaxAttempts)
	gt.Array(t, delays).Equal([]time.Duration{time.Second, 2 * time.Second})

	var ge *goerr.Error
	gt.Bool(t, errors.As(err, &ge)).True()
	gt.Value(t, ge.Values()[outline.RawResponseKey]).Equal(any("not json"))
	gt.Value(t, ge.Values()[outline.AttemptsKey]).Equal(any(outline.DefaultMaxAttempts))
}

func TestGenerate_NoValidSegments(t *testing.T) {
	ctx := context.Background()
	idx, _ := seedIndex(t)

	llm := &mockLLMClient{}
	client, err := outline.New(llm, idx)
	gt.NoError(t, err).Required()

	_, err = client.Generate(ctx, []types.SegmentID{types.NewSegmentID()}, "")
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, outline.ErrNoValidSegments)).True()
	gt.Value(t, llm.calls).Equal(0)
}

func TestGenerate_EmptyIDSet(t *testing.T) {
	ctx := context.Background()
	idx, _ := seedIndex(t)

	client, err := outline.New(&mockLLMClient{}, idx)
	gt.NoError(t, err).Required()

	_, err = client.Generate(ctx, nil, "")
	gt.Value(t, err).NotNil()
}

func TestGenerate_PartialResolutionProceeds(t *testing.T) {
	ctx := context.Background()
	idx, ids := seedIndex(t)

	llm := &mockLLMClient{responses: []string{fmt.Sprintf(
		`{"title": "T", "sections": [{"heading": "H", "points": [{"text": "p", "segment_ids": ["%s"]}]}]}`, ids[0])}}
	client, err := outline.New(llm, idx)
	gt.NoError(t, err).Required()

	got, err := client.Generate(ctx, []types.SegmentID{ids[0], types.NewSegmentID()}, "")
	gt.NoError(t, err).Required()
	gt.Value(t, got.Title).Equal("T")
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]struct {
		input string
		want  string
	}{
		"plain":           {input: `{"a": 1}`, want: `{"a": 1}`},
		"fenced":          {input: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		"fenced with tag": {input: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		"padded":          {input: "  ```json\n{\"a\": 1}\n```  ", want: `{"a": 1}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gt.Value(t, outline.StripCodeFence(tc.input)).Equal(tc.want)
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	segments := []*model.Segment{
		{ID: "seg-a", Text: "first part"},
		{ID: "seg-b", Text: "second part"},
	}

	prompt := outline.BuildUserPrompt("Focus on the turning points", segments)
	gt.String(t, prompt).Contains("Focus on the turning points")
	gt.String(t, prompt).Contains("[Segment seg-a]: first part")
	gt.String(t, prompt).Contains("[Segment seg-b]: second part")
}
