package stages

import (
	"context"
	"fmt"
	"strings"

	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/story"
	"starlit/pkg/utils"
	"starlit/pkg/workflow"
)

// Generator produces story drafts and revisions.
type Generator struct {
	client      llm.Client
	temperature float32
	logger      *logx.Logger
}

// NewGenerator creates the drafting stage.
func NewGenerator(client llm.Client, temperature float32) *Generator {
	return &Generator{
		client:      client,
		temperature: temperature,
		logger:      logx.NewLogger("generator"),
	}
}

type generatorReply struct {
	Title string `json:"title"`
	Story string `json:"story"`
	Notes string `json:"notes"`
}

// Generate implements workflow.Generator.
func (g *Generator) Generate(ctx context.Context, in workflow.GenerateRequest) (story.Artifact, error) {
	g.logger.Info("Generating %s story for theme %q", in.RequestType, in.Theme)

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(generatorSystemPrompt),
		llm.NewUserMessage(g.buildPrompt(in)),
	})
	req.Temperature = g.temperature

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return story.Artifact{}, fmt.Errorf("generate completion: %w", err)
	}

	var reply generatorReply
	if err := utils.UnmarshalLLMJSON(resp.Content, &reply); err != nil {
		return story.Artifact{}, fmt.Errorf("parsing generator reply: %w", err)
	}
	if reply.Title == "" || reply.Story == "" {
		return story.Artifact{}, fmt.Errorf("generator reply missing title or story")
	}

	g.logger.Info("Generated story %q (%d words)", reply.Title, utils.CountWords(reply.Story))
	return story.Artifact{
		Title:     reply.Title,
		Body:      reply.Story,
		WordCount: utils.CountWords(reply.Story),
		Source:    "generated",
	}, nil
}

func (g *Generator) buildPrompt(in workflow.GenerateRequest) string {
	bounds := story.LengthTargets(in.Tier)

	var b strings.Builder
	b.WriteString("Generate a story with the following requirements:\n")
	fmt.Fprintf(&b, "- Theme: %s\n", in.Theme)
	fmt.Fprintf(&b, "- Target length: %s (%d-%d words, aim for about %d)\n",
		in.Tier, bounds.Min, bounds.Max, bounds.Target)
	fmt.Fprintf(&b, "- Request type: %s\n", in.RequestType)

	if in.Previous != nil {
		fmt.Fprintf(&b, "\nPrevious story, titled %q:\n%s\n", in.Previous.Title, in.Previous.Body)
	}
	if in.Feedback != "" {
		fmt.Fprintf(&b, "\nFeedback to incorporate: %s\n", in.Feedback)
	}

	b.WriteString("\nProvide output as valid JSON with keys: title, story, notes")
	return b.String()
}
