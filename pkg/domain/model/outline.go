package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

// Outline is a structured story outline generated from transcript segments
type Outline struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is one heading of an outline with its ordered points
type Section struct {
	Heading string  `json:"heading"`
	Points  []Point `json:"points"`
}

// Point is a single outline entry citing the segments it was drawn from
type Point struct {
	Text       string            `json:"text"`
	SegmentIDs []types.SegmentID `json:"segment_ids"`
}

// Validate checks the structural schema of the outline: non-empty title,
// at least one section, and every point carrying text. Referential validity
// of the cited segment IDs is checked separately by ValidateCitations.
func (o *Outline) Validate() error {
	if o.Title == "" {
		return goerr.New("outline title is empty")
	}
	if len(o.Sections) == 0 {
		return goerr.New("outline has no sections")
	}
	for i, section := range o.Sections {
		if section.Heading == "" {
			return goerr.New("section heading is empty", goerr.V("section", i))
		}
		for j, point := range section.Points {
			if point.Text == "" {
				return goerr.New("point text is empty",
					goerr.V("section", i), goerr.V("point", j))
			}
		}
	}
	return nil
}

// ValidateCitations checks that every cited segment ID was part of the
// context the outline was generated from
func (o *Outline) ValidateCitations(contextIDs []types.SegmentID) error {
	known := make(map[types.SegmentID]struct{}, len(contextIDs))
	for _, id := range contextIDs {
		known[id] = struct{}{}
	}

	for _, section := range o.Sections {
		for _, point := range section.Points {
			for _, id := range point.SegmentIDs {
				if _, ok := known[id]; !ok {
					return goerr.New("outline cites a segment outside its context",
						goerr.V("segmentID", id), goerr.V("heading", section.Heading))
				}
			}
		}
	}
	return nil
}

// SegmentIDs returns all cited segment IDs in document order, deduplicated
func (o *Outline) SegmentIDs() []types.SegmentID {
	seen := make(map[types.SegmentID]struct{})
	var ids []types.SegmentID
	for _, section := range o.Sections {
		for _, point := range section.Points {
			for _, id := range point.SegmentIDs {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}
