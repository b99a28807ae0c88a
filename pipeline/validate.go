package pipeline

import (
	"strings"

	"github.com/pithecene-io/posters/types"
)

// Validate checks that the request carries a non-blank prompt.
// It runs before any external call.
func Validate(req *types.NormalizedRequest) error {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return types.MissingPrompt()
	}
	return nil
}
