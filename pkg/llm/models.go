package llm

import (
	"fmt"
	"strings"
)

// Provider identifiers parsed from "provider/model" strings.
const (
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// ParseModel splits a "provider/model-name" string into its parts.
func ParseModel(model string) (provider, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("model %q must have the form provider/model-name", model)
	}
	return parts[0], parts[1], nil
}
