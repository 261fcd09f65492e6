package adk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// DefaultModel is used when explain.model is not set.
const DefaultModel = "gemini-1.5-flash"

// NewProvider builds the model behind `secgate explain`. Gemini is the only
// backend; an empty provider name selects it.
func NewProvider(ctx context.Context, providerName, apiKey, modelName string) (LLMProvider, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "", "gemini", "google":
		if apiKey == "" {
			return nil, &engine.ConfigError{Source: "explain.api_key", Err: errors.New("gemini needs an API key (GOOGLE_API_KEY)")}
		}
		if modelName == "" {
			modelName = DefaultModel
		}
		return NewGeminiProvider(ctx, apiKey, modelName)
	}
	return nil, &engine.ConfigError{Source: "explain.provider", Err: fmt.Errorf("unknown provider %q", providerName)}
}
