package analysis

import (
	"github.com/m-mizutani/gollem"
	"github.com/storyline-dev/storyline/pkg/domain/types"
)

func segmentIDsParam() *gollem.Parameter {
	return &gollem.Parameter{
		Type:        gollem.TypeArray,
		Description: "IDs of the transcript segments where this item appears",
		Required:    true,
		Items: &gollem.Parameter{
			Type: gollem.TypeString,
		},
	}
}

// schemaFor returns the response schema for one analysis kind
func schemaFor(kind types.AnalysisKind) *gollem.Parameter {
	switch kind {
	case types.AnalysisKeyMoments:
		return &gollem.Parameter{
			Title: "KeyMomentAnalysis",
			Type:  gollem.TypeObject,
			Properties: map[string]*gollem.Parameter{
				"key_moments": {
					Type:        gollem.TypeArray,
					Description: "Key moments, decisions and questions in the transcript",
					Required:    true,
					Items: &gollem.Parameter{
						Type: gollem.TypeObject,
						Properties: map[string]*gollem.Parameter{
							"description": {
								Type:        gollem.TypeString,
								Description: "Description of the moment",
								Required:    true,
							},
							"type": {
								Type:        gollem.TypeString,
								Description: "Kind of moment: decision, question, revelation, etc.",
								Required:    true,
							},
							"segment_ids": segmentIDsParam(),
						},
					},
				},
			},
		}
	case types.AnalysisKeyTerms:
		return &gollem.Parameter{
			Title: "KeyTermAnalysis",
			Type:  gollem.TypeObject,
			Properties: map[string]*gollem.Parameter{
				"key_terms": {
					Type:        gollem.TypeArray,
					Description: "Key terms and concepts used in the transcript",
					Required:    true,
					Items: &gollem.Parameter{
						Type: gollem.TypeObject,
						Properties: map[string]*gollem.Parameter{
							"term": {
								Type:        gollem.TypeString,
								Description: "The key term",
								Required:    true,
							},
							"definition": {
								Type:        gollem.TypeString,
								Description: "Brief definition or explanation",
								Required:    true,
							},
							"segment_ids": segmentIDsParam(),
						},
					},
				},
			},
		}
	default:
		return &gollem.Parameter{
			Title: "TopicAnalysis",
			Type:  gollem.TypeObject,
			Properties: map[string]*gollem.Parameter{
				"topics": {
					Type:        gollem.TypeArray,
					Description: "Key topics and narrative beats of the transcript",
					Required:    true,
					Items: &gollem.Parameter{
						Type: gollem.TypeObject,
						Properties: map[string]*gollem.Parameter{
							"title": {
								Type:        gollem.TypeString,
								Description: "Topic title",
								Required:    true,
							},
							"description": {
								Type:        gollem.TypeString,
								Description: "Topic description",
								Required:    true,
							},
							"segment_ids": segmentIDsParam(),
						},
					},
				},
			},
		}
	}
}
