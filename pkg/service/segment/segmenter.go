package segment

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

const (
	// DefaultMinLength is the minimum segment length in characters. Shorter
	// buffers are merged rather than discarded so no content is lost.
	DefaultMinLength = 20

	// DefaultMaxLength approximates the 512-token input bound of the
	// embedding model via a character-length heuristic
	DefaultMaxLength = 512
)

// Segmenter splits transcripts into bounded-length, semantically coherent
// segments. Sentence boundaries come from a trained Punkt tokenizer so the
// splitter does not break on abbreviations. The tokenizer is loaded once at
// construction and the Segmenter is read-only afterwards.
type Segmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	minLength int
	maxLength int
}

// Option is a functional option for Segmenter configuration
type Option func(*Segmenter)

// WithMinLength overrides the minimum segment length
func WithMinLength(n int) Option {
	return func(s *Segmenter) {
		s.minLength = n
	}
}

// WithMaxLength overrides the maximum segment length
func WithMaxLength(n int) Option {
	return func(s *Segmenter) {
		s.maxLength = n
	}
}

// New creates a Segmenter. Tokenizer training data failing to load is a
// startup failure, not a per-call error.
func New(opts ...Option) (*Segmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load sentence tokenizer")
	}

	s := &Segmenter{
		tokenizer: tokenizer,
		minLength: DefaultMinLength,
		maxLength: DefaultMaxLength,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.minLength <= 0 || s.maxLength <= 0 || s.minLength > s.maxLength {
		return nil, goerr.New("invalid segment length bounds",
			goerr.V("min", s.minLength), goerr.V("max", s.maxLength))
	}

	return s, nil
}

// Split divides text into segments. Sentences are accumulated greedily until
// appending the next one would exceed the maximum length; undersized buffers
// keep accumulating instead of being flushed, and a single sentence longer
// than the maximum is emitted as its own oversized segment. Empty input
// yields an empty slice.
func (s *Segmenter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	var sents []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed != "" {
			sents = append(sents, trimmed)
		}
	}

	segments := []string{}
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		segments = append(segments, buf.String())
		buf.Reset()
	}

	for _, sent := range sents {
		if buf.Len() == 0 {
			buf.WriteString(sent)
			continue
		}

		if buf.Len()+1+len(sent) > s.maxLength {
			if buf.Len() >= s.minLength {
				flush()
				buf.WriteString(sent)
				continue
			}
			// Undersized buffer: merge the sentence forward rather than
			// flushing a fragment or dropping it
		}

		buf.WriteString(" ")
		buf.WriteString(sent)
	}

	// An undersized final buffer is folded into the previous segment so the
	// tail of the transcript is never lost
	if buf.Len() > 0 {
		if buf.Len() >= s.minLength || len(segments) == 0 {
			flush()
		} else {
			segments[len(segments)-1] += " " + buf.String()
			buf.Reset()
		}
	}

	return segments
}
