package types

// Titan text-to-image defaults.
const (
	TaskTypeTextImage     = "TEXT_IMAGE"
	DefaultNumberOfImages = 1
	DefaultImageHeight    = 1024
	DefaultImageWidth     = 1024
	DefaultCfgScale       = 8.0
)

// DefaultModelID is the Bedrock model used for poster generation.
const DefaultModelID = "amazon.titan-image-generator-v2:0"

// OptionSeed is the only request option forwarded to the model.
const OptionSeed = "seed"

// DefaultArtifactContentType is the content type stored with posters.
const DefaultArtifactContentType = "image/png"

// GenerationConfig is the image generation configuration for one request.
// Built from fixed defaults; only allow-listed options override it.
type GenerationConfig struct {
	TaskType       string  `json:"-"`
	NumberOfImages int     `json:"numberOfImages"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	CfgScale       float64 `json:"cfgScale"`
	// Seed is passed through untouched when the request supplies one.
	Seed any `json:"seed,omitempty"`
}

// DefaultGenerationConfig returns the fixed defaults.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		TaskType:       TaskTypeTextImage,
		NumberOfImages: DefaultNumberOfImages,
		Height:         DefaultImageHeight,
		Width:          DefaultImageWidth,
		CfgScale:       DefaultCfgScale,
	}
}
