package llm

import (
	"context"
	"errors"
	"os"
)

// ErrMissingAPIKey is returned when a provider has no credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Option keys understood by every provider.
const (
	OptionModel       = "model"
	OptionAPIKey      = "api_key"
	OptionJSON        = "json"
	OptionMaxTokens   = "max_tokens"
	OptionTemperature = "temperature"
)

func stringOption(options map[string]interface{}, key string) string {
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}

func boolOption(options map[string]interface{}, key string) bool {
	v, _ := options[key].(bool)
	return v
}

func intOption(options map[string]interface{}, key string, def int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func floatOption(options map[string]interface{}, key string) (float64, bool) {
	switch v := options[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// apiKey returns the key from options, or the first non-empty env var.
func apiKey(options map[string]interface{}, envs ...string) string {
	if v := stringOption(options, OptionAPIKey); v != "" {
		return v
	}
	for _, env := range envs {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}
