// Package google provides Google Gemini client implementation for LLM interface.
package google

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"starlit/pkg/llm"
	"starlit/pkg/llm/llmerrors"
)

// GeminiClient wraps the Google GenAI client to implement llm.Client.
type GeminiClient struct {
	initOnce sync.Once
	client   *genai.Client
	initErr  error
	apiKey   string
	model    string
}

// NewGeminiClientWithModel creates a new Gemini client with a specific model
// (raw client, middleware applied at higher level).
func NewGeminiClientWithModel(apiKey, model string) llm.Client {
	// Client creation requires a context, so it is deferred to first use.
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

// ensureClient initializes the underlying client exactly once. Cached clients
// are shared across stages, so concurrent first calls must not race.
func (g *GeminiClient) ensureClient(ctx context.Context) error {
	g.initOnce.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			g.initErr = llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "failed to create Gemini client")
			return
		}
		g.client = client
	})
	return g.initErr
}

// Complete implements the llm.Client interface.
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := g.ensureClient(ctx); err != nil {
		return llm.CompletionResponse{}, err
	}

	contents, systemInstruction, err := convertMessagesToGemini(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	//nolint:gosec // MaxTokens validated at higher layer, overflow acceptable
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}

	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "Gemini API call failed")
	}

	if result == nil || result.Text() == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: "end_turn",
	}, nil
}

// Stream implements the llm.Client interface (not used).
func (g *GeminiClient) Stream(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "streaming not implemented for Gemini client")
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

// convertMessagesToGemini converts our message format to Gemini's Content format.
// Returns contents array and optional system instruction.
func convertMessagesToGemini(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Content == "" {
			continue
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return contents, systemInstruction, nil
}
