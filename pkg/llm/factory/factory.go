// Package factory constructs provider-specific LLM clients wrapped with the
// metrics and retry middleware. It is the only package that knows about the
// individual provider implementations.
package factory

import (
	"fmt"
	"strings"

	"starlit/pkg/config"
	"starlit/pkg/llm"
	"starlit/pkg/llm/internal/llmimpl/anthropic"
	"starlit/pkg/llm/internal/llmimpl/google"
	"starlit/pkg/llm/internal/llmimpl/ollama"
	"starlit/pkg/llm/internal/llmimpl/openaiofficial"
	"starlit/pkg/llm/middleware/metrics"
	"starlit/pkg/utils"
)

// Default Ollama host when OLLAMA_HOST is not set.
const defaultOllamaHost = "http://localhost:11434"

// ClientFactory creates LLM clients with metrics and retry middleware applied.
// Clients are cached per model string so that all stages sharing a model share
// one underlying client.
type ClientFactory struct {
	recorder metrics.Recorder
	counter  *utils.TokenCounter
	clients  map[string]llm.Client
}

// NewClientFactory creates a factory recording metrics through the given recorder.
func NewClientFactory(recorder metrics.Recorder) *ClientFactory {
	counter, err := utils.NewTokenCounter("gpt-4")
	if err != nil {
		// The counter falls back to length-based estimation when nil.
		counter = nil
	}
	return &ClientFactory{
		recorder: recorder,
		counter:  counter,
		clients:  make(map[string]llm.Client),
	}
}

// CreateClient builds a middleware-wrapped client for a "provider/model" string.
// The API key is resolved from the secrets store or environment.
func (f *ClientFactory) CreateClient(model string) (llm.Client, error) {
	if client, ok := f.clients[model]; ok {
		return client, nil
	}

	provider, name, err := llm.ParseModel(model)
	if err != nil {
		return nil, err
	}

	rawClient, err := f.createRawClient(provider, name)
	if err != nil {
		return nil, err
	}

	// Metrics -> Retry -> RawClient
	client := llm.Chain(rawClient,
		metrics.Middleware(f.recorder, f.counter),
		llm.RetryMiddleware(),
	)

	f.clients[model] = client
	return client, nil
}

func (f *ClientFactory) createRawClient(provider, name string) (llm.Client, error) {
	switch provider {
	case llm.ProviderGoogle:
		apiKey, err := apiKeyFor("GEMINI_API_KEY", "GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		return google.NewGeminiClientWithModel(apiKey, name), nil
	case llm.ProviderAnthropic:
		apiKey, err := apiKeyFor("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return anthropic.NewClaudeClientWithModel(apiKey, name), nil
	case llm.ProviderOpenAI:
		apiKey, err := apiKeyFor("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return openaiofficial.NewOfficialClientWithModel(apiKey, name), nil
	case llm.ProviderOllama:
		host, err := config.GetSecret("OLLAMA_HOST")
		if err != nil {
			host = defaultOllamaHost
		}
		return ollama.NewOllamaClientWithModel(host, name), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// apiKeyFor resolves an API key trying each name in order.
func apiKeyFor(names ...string) (string, error) {
	for _, name := range names {
		if key, err := config.GetSecret(name); err == nil {
			return key, nil
		}
	}
	return "", fmt.Errorf("API key not found (checked: %s)", strings.Join(names, ", "))
}
