package registry

import "github.com/atelierhq/atelier/pkg/models"

// RegisterDefaultTypes registers the seven built-in canvas node types.
func (r *Registry) RegisterDefaultTypes() {
	r.Register(promptInputDefinition())
	r.Register(imageGeneratorDefinition())
	r.Register(videoGeneratorDefinition())
	r.Register(videoAnalyzerDefinition())
	r.Register(imageEditorDefinition())
	r.Register(audioGeneratorDefinition())
	r.Register(storyGeneratorDefinition())
}

func promptInputDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypePromptInput,
		Name:          "Prompt",
		Description:   "Free-form text prompt that feeds downstream generators",
		DefaultTitle:  "Prompt",
		DefaultWidth:  260,
		DefaultHeight: 140,
		MinWidth:      160,
		MinHeight:     80,
		Generates:     false,
		ResultField:   models.ResultFieldText,
	}
}

func imageGeneratorDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeImageGenerator,
		Name:          "Image",
		Description:   "Generates an image from the prompt and connected inputs",
		DefaultTitle:  "Image",
		DefaultWidth:  320,
		DefaultHeight: 240,
		MinWidth:      200,
		MinHeight:     150,
		AspectRatio:   4.0 / 3.0,
		Generates:     true,
		ResultField:   models.ResultFieldImage,
		DefaultParams: map[string]any{
			"aspect_ratio": "4:3",
			"count":        1,
		},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"aspect_ratio": map[string]any{
					"type":        "string",
					"description": "Output aspect ratio",
					"enum":        []string{"1:1", "4:3", "3:4", "16:9", "9:16"},
					"default":     "4:3",
				},
				"count": map[string]any{
					"type":        "integer",
					"description": "Number of candidate images to request",
					"minimum":     1,
					"maximum":     4,
					"default":     1,
				},
				"style": map[string]any{
					"type":        "string",
					"description": "Optional style hint appended to the prompt",
					"examples":    []string{"watercolor", "film still", "isometric"},
				},
			},
			"additionalProperties": false,
		},
	}
}

func videoGeneratorDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeVideoGenerator,
		Name:          "Video",
		Description:   "Generates a video clip from the prompt and an optional source image",
		DefaultTitle:  "Video",
		DefaultWidth:  320,
		DefaultHeight: 180,
		MinWidth:      240,
		MinHeight:     135,
		AspectRatio:   16.0 / 9.0,
		Generates:     true,
		ResultField:   models.ResultFieldVideo,
		DefaultParams: map[string]any{
			"duration_seconds": 5,
			"aspect_ratio":     "16:9",
		},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"duration_seconds": map[string]any{
					"type":        "integer",
					"description": "Clip length in seconds",
					"minimum":     1,
					"maximum":     60,
					"default":     5,
				},
				"aspect_ratio": map[string]any{
					"type":    "string",
					"enum":    []string{"16:9", "9:16", "1:1"},
					"default": "16:9",
				},
				"with_audio": map[string]any{
					"type":        "boolean",
					"description": "Request a soundtrack with the clip",
					"default":     false,
				},
			},
			"additionalProperties": false,
		},
	}
}

func videoAnalyzerDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeVideoAnalyzer,
		Name:          "Analyzer",
		Description:   "Analyzes a connected video and produces a text report",
		DefaultTitle:  "Analyzer",
		DefaultWidth:  300,
		DefaultHeight: 200,
		MinWidth:      200,
		MinHeight:     120,
		Generates:     true,
		ResultField:   models.ResultFieldText,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"focus": map[string]any{
					"type":        "string",
					"description": "What the analysis should concentrate on",
					"examples":    []string{"pacing", "continuity", "color grading"},
				},
			},
			"additionalProperties": false,
		},
	}
}

func imageEditorDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeImageEditor,
		Name:          "Editor",
		Description:   "Edits or composes connected images following an instruction",
		DefaultTitle:  "Editor",
		DefaultWidth:  320,
		DefaultHeight: 240,
		MinWidth:      200,
		MinHeight:     150,
		AspectRatio:   4.0 / 3.0,
		Generates:     true,
		ResultField:   models.ResultFieldImage,
		DefaultParams: map[string]any{
			"strength": 0.75,
		},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"strength": map[string]any{
					"type":        "number",
					"description": "How strongly the edit departs from the source images",
					"minimum":     0,
					"maximum":     1,
					"default":     0.75,
				},
				"mask": map[string]any{
					"type":        "string",
					"description": "Optional mask URI restricting the edited region",
				},
			},
			"additionalProperties": false,
		},
	}
}

func audioGeneratorDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeAudioGenerator,
		Name:          "Audio",
		Description:   "Generates speech or music from the prompt",
		DefaultTitle:  "Audio",
		DefaultWidth:  280,
		DefaultHeight: 120,
		MinWidth:      200,
		MinHeight:     80,
		Generates:     true,
		ResultField:   models.ResultFieldAudio,
		DefaultParams: map[string]any{
			"voice": "narrator",
		},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"voice": map[string]any{
					"type":        "string",
					"description": "Voice preset for speech output",
					"default":     "narrator",
				},
				"format": map[string]any{
					"type":    "string",
					"enum":    []string{"mp3", "wav", "ogg"},
					"default": "mp3",
				},
			},
			"additionalProperties": false,
		},
	}
}

func storyGeneratorDefinition() *Definition {
	return &Definition{
		Type:          models.NodeTypeStoryGenerator,
		Name:          "Story",
		Description:   "Expands the prompt into a multi-scene story outline",
		DefaultTitle:  "Story",
		DefaultWidth:  300,
		DefaultHeight: 220,
		MinWidth:      220,
		MinHeight:     140,
		Generates:     true,
		ResultField:   models.ResultFieldText,
		DefaultParams: map[string]any{
			"scenes": 3,
		},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scenes": map[string]any{
					"type":        "integer",
					"description": "Number of scenes in the outline",
					"minimum":     1,
					"maximum":     12,
					"default":     3,
				},
				"genre": map[string]any{
					"type":     "string",
					"examples": []string{"noir", "fairy tale", "documentary"},
				},
			},
			"additionalProperties": false,
		},
	}
}
