package stages

import (
	"context"
	"fmt"
	"strings"

	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/story"
)

// Formatter renders the approved story and its moral as a markdown document.
type Formatter struct {
	client      llm.Client
	temperature float32
	logger      *logx.Logger
}

// NewFormatter creates the presentation stage.
func NewFormatter(client llm.Client, temperature float32) *Formatter {
	return &Formatter{
		client:      client,
		temperature: temperature,
		logger:      logx.NewLogger("formatter"),
	}
}

// Format implements workflow.Formatter.
func (f *Formatter) Format(ctx context.Context, artifact story.Artifact, moral string) (string, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(formatterSystemPrompt),
		llm.NewUserMessage(fmt.Sprintf(
			"Format this story for display:\n\nTitle: %s\n\nStory:\n%s\n\nMoral: %s\n\nProduce a neat markdown-formatted output.",
			artifact.Title, artifact.Body, moral)),
	})
	req.Temperature = f.temperature

	resp, err := f.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("format completion: %w", err)
	}

	doc := strings.TrimSpace(resp.Content)
	if doc == "" {
		return "", fmt.Errorf("formatter returned no text")
	}

	f.logger.Debug("Formatted story %q", artifact.Title)
	return doc, nil
}
