package llm

import (
	"fmt"

	"github.com/ShayCichocki/rdteam/internal/config"
)

// New creates the gateway selected by cfg.LLM.Provider. On error the
// returned Gateway is nil.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.LLM.Provider {
	case "", "anthropic":
		apiKey, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		g, err := NewAnthropicGateway(AnthropicConfig{
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			APIKey:    apiKey,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "bedrock":
		g, err := NewAnthropicGateway(AnthropicConfig{
			Model:         cfg.LLM.Model,
			MaxTokens:     cfg.LLM.MaxTokens,
			UseAWSBedrock: true,
			AWSRegion:     cfg.LLM.AWSRegion,
			AWSProfile:    cfg.LLM.AWSProfile,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "ollama":
		g, err := NewOllamaGateway(OllamaConfig{
			Host:      cfg.LLM.OllamaHost,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
