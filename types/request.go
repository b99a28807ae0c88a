package types

// NormalizedRequest is the single internal request shape produced by the
// ingress adapter, whatever the trigger kind.
type NormalizedRequest struct {
	// Prompt is the text prompt for image generation.
	Prompt string `json:"prompt"`
	// Options holds the remaining request fields (e.g. seed).
	// Only allow-listed keys reach the model.
	Options map[string]any `json:"options,omitempty"`
}

// Option returns the named option and whether it was present.
func (r *NormalizedRequest) Option(name string) (any, bool) {
	if r == nil || r.Options == nil {
		return nil, false
	}
	v, ok := r.Options[name]
	return v, ok
}
