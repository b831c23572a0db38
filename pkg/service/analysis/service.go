package analysis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
)

//go:embed prompt/topics.md
var topicsPrompt string

//go:embed prompt/key_moments.md
var keyMomentsPrompt string

//go:embed prompt/key_terms.md
var keyTermsPrompt string

// ErrNoValidSegments means none of the requested segment IDs resolved
var ErrNoValidSegments = goerr.New("no valid segments found")

// Failure carries the diagnostics of one failed analysis call so the caller
// can inspect what the model actually returned
type Failure struct {
	RawResponse string
	Reason      string
}

// Result is the outcome of a transcript analysis. A failed call degrades
// the result instead of failing it: whichever of the three analyses parsed
// is kept, and the rest are reported in Failures. Partial analytical value
// still exists when only one call misbehaves.
type Result struct {
	Analysis model.Analysis
	Failures map[types.AnalysisKind]Failure
}

// Degraded reports whether any of the three analyses failed
func (r *Result) Degraded() bool {
	return len(r.Failures) > 0
}

// Client runs the three independent transcript analyses
type Client struct {
	llmClient gollem.LLMClient
	index     interfaces.VectorIndex
}

// New creates a transcript analyzer over the given LLM client and index
func New(llmClient gollem.LLMClient, index interfaces.VectorIndex) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if index == nil {
		return nil, goerr.New("vector index is required")
	}

	return &Client{
		llmClient: llmClient,
		index:     index,
	}, nil
}

// Analyze resolves the segment IDs and issues the three generation calls in
// fixed order (topics, key moments, key terms) so logs stay deterministic.
// Each call is parsed independently.
func (c *Client) Analyze(ctx context.Context, segmentIDs []types.SegmentID) (*Result, error) {
	if len(segmentIDs) == 0 {
		return nil, goerr.New("segment ID set is empty")
	}

	segments, err := c.index.GetByIDs(ctx, segmentIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve segments")
	}
	if len(segments) == 0 {
		return nil, goerr.Wrap(ErrNoValidSegments, "none of the requested segment IDs exist",
			goerr.V("requested", len(segmentIDs)))
	}

	taggedContext := buildContext(segments)
	logger := logging.From(ctx)

	result := &Result{Failures: make(map[types.AnalysisKind]Failure)}

	for _, kind := range types.AllAnalysisKinds() {
		raw, err := c.generate(ctx, kind, taggedContext)
		if err != nil {
			logger.Warn("analysis call failed", "kind", kind, "error", err.Error())
			result.Failures[kind] = Failure{Reason: err.Error()}
			continue
		}

		if err := parseInto(kind, raw, &result.Analysis); err != nil {
			logger.Warn("analysis response failed to parse", "kind", kind, "error", err.Error())
			result.Failures[kind] = Failure{RawResponse: raw, Reason: err.Error()}
		}
	}

	return result, nil
}

func (c *Client) generate(ctx context.Context, kind types.AnalysisKind, taggedContext string) (string, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schemaFor(kind)),
		gollem.WithSessionSystemPrompt(promptFor(kind)),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session", goerr.V("kind", kind))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(taggedContext))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate analysis", goerr.V("kind", kind))
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no text", goerr.V("kind", kind))
	}

	return resp.Texts[0], nil
}

// parseInto validates one raw response and stores the parsed list into its
// slot of the analysis. The slot is written only when the response parses and
// validates, so a bad response for one kind never touches the others.
func parseInto(kind types.AnalysisKind, raw string, out *model.Analysis) error {
	stripped := stripCodeFence(raw)

	switch kind {
	case types.AnalysisTopics:
		var envelope struct {
			Topics []model.Topic `json:"topics"`
		}
		if err := json.Unmarshal([]byte(stripped), &envelope); err != nil {
			return goerr.Wrap(err, "failed to parse topics response")
		}
		if err := model.ValidateTopics(envelope.Topics); err != nil {
			return err
		}
		out.Topics = envelope.Topics
	case types.AnalysisKeyMoments:
		var envelope struct {
			KeyMoments []model.KeyMoment `json:"key_moments"`
		}
		if err := json.Unmarshal([]byte(stripped), &envelope); err != nil {
			return goerr.Wrap(err, "failed to parse key moments response")
		}
		if err := model.ValidateKeyMoments(envelope.KeyMoments); err != nil {
			return err
		}
		out.KeyMoments = envelope.KeyMoments
	case types.AnalysisKeyTerms:
		var envelope struct {
			KeyTerms []model.KeyTerm `json:"key_terms"`
		}
		if err := json.Unmarshal([]byte(stripped), &envelope); err != nil {
			return goerr.Wrap(err, "failed to parse key terms response")
		}
		if err := model.ValidateKeyTerms(envelope.KeyTerms); err != nil {
			return err
		}
		out.KeyTerms = envelope.KeyTerms
	default:
		return goerr.New("unknown analysis kind", goerr.V("kind", kind))
	}

	return nil
}

func promptFor(kind types.AnalysisKind) string {
	switch kind {
	case types.AnalysisKeyMoments:
		return keyMomentsPrompt
	case types.AnalysisKeyTerms:
		return keyTermsPrompt
	default:
		return topicsPrompt
	}
}

func buildContext(segments []*model.Segment) string {
	var sb strings.Builder

	sb.WriteString("## Transcript segments:\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&sb, "[Segment %s]: %s\n\n", seg.ID, seg.Text)
	}

	return sb.String()
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
