package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/storyline-dev/storyline/pkg/domain/model"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

func buildOutline(ids ...types.SegmentID) *model.Outline {
	return &model.Outline{
		Title: "Product review meeting",
		Sections: []model.Section{
			{
				Heading: "Decisions",
				Points: []model.Point{
					{Text: "Ship the beta in March", SegmentIDs: ids},
				},
			},
		},
	}
}

func TestOutlineValidate(t *testing.T) {
	t.Run("valid outline", func(t *testing.T) {
		gt.NoError(t, buildOutline().Validate())
	})

	t.Run("empty title", func(t *testing.T) {
		o := buildOutline()
		o.Title = ""
		gt.Error(t, o.Validate())
	})

	t.Run("no sections", func(t *testing.T) {
		o := buildOutline()
		o.Sections = nil
		gt.Error(t, o.Validate())
	})

	t.Run("empty heading", func(t *testing.T) {
		o := buildOutline()
		o.Sections[0].Heading = ""
		gt.Error(t, o.Validate())
	})

	t.Run("empty point text", func(t *testing.T) {
		o := buildOutline()
		o.Sections[0].Points[0].Text = ""
		gt.Error(t, o.Validate())
	})
}

func TestOutlineValidateCitations(t *testing.T) {
	known := types.NewSegmentID()
	foreign := types.NewSegmentID()

	t.Run("all citations in context", func(t *testing.T) {
		o := buildOutline(known)
		gt.NoError(t, o.ValidateCitations([]types.SegmentID{known}))
	})

	t.Run("no citations is fine", func(t *testing.T) {
		o := buildOutline()
		gt.NoError(t, o.ValidateCitations([]types.SegmentID{known}))
	})

	t.Run("foreign citation rejected", func(t *testing.T) {
		o := buildOutline(known, foreign)
		gt.Error(t, o.ValidateCitations([]types.SegmentID{known}))
	})
}

func TestOutlineSegmentIDs(t *testing.T) {
	id1 := types.NewSegmentID()
	id2 := types.NewSegmentID()

	o := &model.Outline{
		Title: "t",
		Sections: []model.Section{
			{
				Heading: "a",
				Points: []model.Point{
					{Text: "p1", SegmentIDs: []types.SegmentID{id1, id2}},
					{Text: "p2", SegmentIDs: []types.SegmentID{id2, id1}},
				},
			},
		},
	}

	ids := o.SegmentIDs()
	gt.Array(t, ids).Length(2)
	gt.Value(t, ids[0]).Equal(id1)
	gt.Value(t, ids[1]).Equal(id2)
}
