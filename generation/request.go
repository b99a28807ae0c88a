package generation

import (
	"encoding/json"

	"github.com/pithecene-io/posters/types"
)

// titanRequest is the Titan Image Generator request body.
type titanRequest struct {
	TaskType              string                 `json:"taskType"`
	TextToImageParams     textToImageParams      `json:"textToImageParams"`
	ImageGenerationConfig types.GenerationConfig `json:"imageGenerationConfig"`
}

type textToImageParams struct {
	Text string `json:"text"`
}

// encodeRequest renders the model request body for a prompt and config.
func encodeRequest(prompt string, cfg types.GenerationConfig) ([]byte, error) {
	return json.Marshal(titanRequest{
		TaskType:              cfg.TaskType,
		TextToImageParams:     textToImageParams{Text: prompt},
		ImageGenerationConfig: cfg,
	})
}
