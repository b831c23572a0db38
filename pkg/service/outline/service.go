package outline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/storyline-dev/storyline/pkg/domain/interfaces"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
	"github.com/storyline-dev/storyline/pkg/utils/logging"
)

//go:embed prompt/outline_system.md
var systemPrompt string

// Sentinel errors for outline generation
var (
	// ErrNoValidSegments means none of the requested segment IDs resolved.
	// The caller supplied unusable input; the request is not retried.
	ErrNoValidSegments = goerr.New("no valid segments found")

	// ErrGenerationFailed means every generation attempt produced output
	// that failed to parse or validate. The last raw response and attempt
	// count travel with the error for diagnostics.
	ErrGenerationFailed = goerr.New("outline generation failed")
)

// Error value keys attached to ErrGenerationFailed
const (
	RawResponseKey = "raw_response"
	AttemptsKey    = "attempts"
)

const (
	// DefaultMaxAttempts bounds the generate-validate-retry loop
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the first backoff delay; it doubles after every
	// failed attempt and is applied only between attempts
	DefaultRetryDelay = time.Second

	defaultInstruction = "Generate a structured outline that captures the main points and flow of the discussion."
)

// Client generates schema-validated story outlines from stored segments
type Client struct {
	llmClient   gollem.LLMClient
	index       interfaces.VectorIndex
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithMaxAttempts overrides how many generation attempts are made
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithRetryDelay overrides the initial backoff delay
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

func withSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// New creates an outline generator over the given LLM client and index
func New(llmClient gollem.LLMClient, index interfaces.VectorIndex, opts ...Option) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if index == nil {
		return nil, goerr.New("vector index is required")
	}

	c := &Client{
		llmClient:   llmClient,
		index:       index,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxAttempts <= 0 {
		return nil, goerr.New("max attempts must be positive", goerr.V("maxAttempts", c.maxAttempts))
	}

	return c, nil
}

// Generate resolves the requested segment IDs, builds a tagged context and
// runs the generate-validate-retry loop. It returns either a schema-valid
// outline or an error; there is no partial success.
func (c *Client) Generate(ctx context.Context, segmentIDs []types.SegmentID, instruction string) (*model.Outline, error) {
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
	if len(segments) < len(segmentIDs) {
		logging.From(ctx).Warn("some requested segments were not found",
			"requested", len(segmentIDs), "resolved", len(segments))
	}

	contextIDs := make([]types.SegmentID, len(segments))
	for i, seg := range segments {
		contextIDs[i] = seg.ID
	}

	if instruction == "" {
		instruction = defaultInstruction
	}
	userPrompt := buildUserPrompt(instruction, segments)

	logger := logging.From(ctx)
	delay := c.retryDelay
	var lastRaw string
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		raw, err := c.generateOnce(ctx, userPrompt)
		if err != nil {
			// Transport failure: no response to keep, but still retryable
			lastErr = err
		} else {
			lastRaw = raw
			outline, parseErr := parseOutline(raw, contextIDs)
			if parseErr == nil {
				return outline, nil
			}
			lastErr = parseErr
		}

		logger.Warn("outline attempt failed",
			"attempt", attempt, "maxAttempts", c.maxAttempts, "error", lastErr.Error())

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, goerr.Wrap(err, "outline generation canceled during backoff")
			}
			delay *= 2
		}
	}

	return nil, goerr.Wrap(ErrGenerationFailed, "all generation attempts exhausted",
		goerr.V(RawResponseKey, lastRaw),
		goerr.V(AttemptsKey, c.maxAttempts),
		goerr.V("cause", lastErr.Error()))
}

// generateOnce runs a single LLM call in a fresh session
func (c *Client) generateOnce(ctx context.Context, userPrompt string) (string, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(outlineSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no text")
	}

	return resp.Texts[0], nil
}

// parseOutline parses and validates a raw response. Both parse failures and
// schema violations are retryable from the caller's perspective.
func parseOutline(raw string, contextIDs []types.SegmentID) (*model.Outline, error) {
	stripped := stripCodeFence(raw)

	var outline model.Outline
	if err := json.Unmarshal([]byte(stripped), &outline); err != nil {
		return nil, goerr.Wrap(err, "failed to parse outline response")
	}
	if err := outline.Validate(); err != nil {
		return nil, goerr.Wrap(err, "outline failed schema validation")
	}
	if err := outline.ValidateCitations(contextIDs); err != nil {
		return nil, goerr.Wrap(err, "outline failed citation validation")
	}

	return &outline, nil
}

// buildUserPrompt tags every segment with its ID so the model can cite the
// IDs it actually saw
func buildUserPrompt(instruction string, segments []*model.Segment) string {
	var sb strings.Builder

	sb.WriteString(instruction)
	sb.WriteString("\n\n## Transcript segments:\n\n")

	for _, seg := range segments {
		fmt.Fprintf(&sb, "[Segment %s]: %s\n\n", seg.ID, seg.Text)
	}

	return sb.String()
}

// stripCodeFence removes surrounding markdown code fences from a response
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. ```json)
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
