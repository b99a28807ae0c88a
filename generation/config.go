package generation

import "github.com/pithecene-io/posters/types"

// allowedOverrides lists the request options that may change the
// generation config. Everything else in the request is ignored.
var allowedOverrides = map[string]func(*types.GenerationConfig, any){
	types.OptionSeed: func(c *types.GenerationConfig, v any) { c.Seed = v },
}

// NewConfig merges the fixed defaults with allow-listed request options.
func NewConfig(options map[string]any) types.GenerationConfig {
	cfg := types.DefaultGenerationConfig()
	for name, apply := range allowedOverrides {
		if v, ok := options[name]; ok && v != nil {
			apply(&cfg, v)
		}
	}
	return cfg
}
