// Package llm wraps generative model access behind a small client interface.
package llm

// ModelTier names a capability level; the config maps tiers to concrete models.
type ModelTier string

const (
	// TierLite is for cheap, fast calls.
	TierLite ModelTier = "lite"
	// TierStandard reads a full financial statement and fills the checklist.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or dense statements.
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies the model vendor.
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

// Config maps tiers to model names.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model for tier, falling back to standard and then lite.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok && model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier pointed at model. An empty model leaves c unchanged.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{Provider: c.Provider, Models: make(map[ModelTier]string, len(c.Models))}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	if model != "" {
		out.Models[tier] = model
	}
	return out
}
