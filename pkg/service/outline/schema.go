package outline

import "github.com/m-mizutani/gollem"

// outlineSchema describes the expected JSON structure for structured output
func outlineSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "StoryOutline",
		Description: "Structured story outline generated from transcript segments",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"title": {
				Type:        gollem.TypeString,
				Description: "Main title of the outline",
				Required:    true,
			},
			"sections": {
				Type:        gollem.TypeArray,
				Description: "Ordered outline sections",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"heading": {
							Type:        gollem.TypeString,
							Description: "Section heading",
							Required:    true,
						},
						"points": {
							Type:        gollem.TypeArray,
							Description: "Ordered points under this section",
							Required:    true,
							Items: &gollem.Parameter{
								Type: gollem.TypeObject,
								Properties: map[string]*gollem.Parameter{
									"text": {
										Type:        gollem.TypeString,
										Description: "Point description",
										Required:    true,
									},
									"segment_ids": {
										Type:        gollem.TypeArray,
										Description: "IDs of the transcript segments this point is drawn from",
										Required:    true,
										Items: &gollem.Parameter{
											Type: gollem.TypeString,
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
