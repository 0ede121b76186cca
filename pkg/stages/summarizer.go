package stages

import (
	"context"
	"fmt"
	"strings"

	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/story"
)

// Summarizer distills the moral lesson from an approved story.
type Summarizer struct {
	client      llm.Client
	temperature float32
	logger      *logx.Logger
}

// NewSummarizer creates the moral extraction stage.
func NewSummarizer(client llm.Client, temperature float32) *Summarizer {
	return &Summarizer{
		client:      client,
		temperature: temperature,
		logger:      logx.NewLogger("summarizer"),
	}
}

// Summarize implements workflow.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, artifact story.Artifact) (string, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(summarizerSystemPrompt),
		llm.NewUserMessage(fmt.Sprintf(
			"Extract the moral lesson from this story:\n\nTitle: %s\n\nStory:\n%s\n\nProvide a clear, child-friendly moral summary (1-3 sentences).",
			artifact.Title, artifact.Body)),
	})
	req.Temperature = s.temperature

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summarize completion: %w", err)
	}

	moral := strings.TrimSpace(resp.Content)
	if moral == "" {
		return "", fmt.Errorf("summarizer returned no text")
	}

	s.logger.Debug("Extracted moral for %q", artifact.Title)
	return moral, nil
}
