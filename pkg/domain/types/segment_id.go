package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// SegmentID is a UUID-based identifier for a transcript segment.
// It is assigned once at ingestion time and never changes.
type SegmentID string

// NewSegmentID generates a new UUID v4 SegmentID
func NewSegmentID() SegmentID {
	return SegmentID(uuid.New().String())
}

// Validate checks that the SegmentID is a non-empty valid UUID
func (s SegmentID) Validate() error {
	if s == "" {
		return goerr.New("segment ID is empty")
	}
	if _, err := uuid.Parse(string(s)); err != nil {
		return goerr.Wrap(err, "segment ID is not a valid UUID", goerr.V("id", string(s)))
	}
	return nil
}

// String returns the string representation of the SegmentID
func (s SegmentID) String() string {
	return string(s)
}
