package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

// Topic is a recurring subject or narrative beat identified in a transcript
type Topic struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	SegmentIDs  []types.SegmentID `json:"segment_ids"`
}

// KeyMoment is a notable decision, question or revelation in a transcript
type KeyMoment struct {
	Description string            `json:"description"`
	Type        string            `json:"type"`
	SegmentIDs  []types.SegmentID `json:"segment_ids"`
}

// KeyTerm is a domain term or concept used in a transcript
type KeyTerm struct {
	Term       string            `json:"term"`
	Definition string            `json:"definition"`
	SegmentIDs []types.SegmentID `json:"segment_ids"`
}

// Analysis holds the three independent transcript analyses. Items within
// each list carry no required order.
type Analysis struct {
	Topics     []Topic     `json:"topics"`
	KeyMoments []KeyMoment `json:"key_moments"`
	KeyTerms   []KeyTerm   `json:"key_terms"`
}

// Validate checks that every analysis item carries its textual payload
func (a *Analysis) Validate() error {
	if err := ValidateTopics(a.Topics); err != nil {
		return err
	}
	if err := ValidateKeyMoments(a.KeyMoments); err != nil {
		return err
	}
	return ValidateKeyTerms(a.KeyTerms)
}

// ValidateTopics checks that every topic carries a title
func ValidateTopics(topics []Topic) error {
	for i, t := range topics {
		if t.Title == "" {
			return goerr.New("topic title is empty", goerr.V("index", i))
		}
	}
	return nil
}

// ValidateKeyMoments checks that every key moment carries a description
func ValidateKeyMoments(moments []KeyMoment) error {
	for i, m := range moments {
		if m.Description == "" {
			return goerr.New("key moment description is empty", goerr.V("index", i))
		}
	}
	return nil
}

// ValidateKeyTerms checks that every key term carries its term
func ValidateKeyTerms(terms []KeyTerm) error {
	for i, term := range terms {
		if term.Term == "" {
			return goerr.New("key term is empty", goerr.V("index", i))
		}
	}
	return nil
}
