package stages

import (
	"context"
	"fmt"
	"strings"

	"starlit/pkg/contextmgr"
	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/story"
	"starlit/pkg/workflow"
)

// Classifier routes user turns by asking a model to classify them against the
// conversation history, then mapping the model's structured reply onto route
// tokens.
type Classifier struct {
	client      llm.Client
	temperature float32
	logger      *logx.Logger
}

// NewClassifier creates the routing stage.
func NewClassifier(client llm.Client, temperature float32) *Classifier {
	return &Classifier{
		client:      client,
		temperature: temperature,
		logger:      logx.NewLogger("classifier"),
	}
}

// Classify implements workflow.Classifier.
func (c *Classifier) Classify(ctx context.Context, in workflow.ClassifyContext) (workflow.Classification, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(classifierSystemPrompt),
		llm.NewUserMessage(c.buildPrompt(in)),
	})
	req.Temperature = c.temperature

	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		return workflow.Classification{}, fmt.Errorf("classify completion: %w", err)
	}

	decision, requestType, theme, reply := parseClassifierReply(resp.Content)
	c.logger.Debug("Classified turn %d: decision=%s type=%s theme=%q", in.TurnCount, decision, requestType, theme)

	out := workflow.Classification{Theme: theme}

	switch {
	case decision == "inappropriate" || strings.Contains(requestType, "inappropriate"):
		out.Route = story.RouteRefuse
		out.Response = reply
	case requestType == "conversational":
		out.Route = story.RouteRespond
		out.Response = reply
	case strings.Contains(requestType, "modify"):
		out.Route = story.RouteGenerate
		out.RequestType = story.RequestModify
	case strings.Contains(requestType, "retrieve") || strings.Contains(requestType, "classic"):
		out.Route = story.RouteRetrieve
		out.RequestType = story.RequestRetrieve
	case strings.Contains(requestType, "new") || strings.Contains(requestType, "story"):
		out.Route = story.RouteGenerate
		out.RequestType = story.RequestNew
	default:
		out.Route = story.RouteRespond
		out.Response = reply
	}

	return out, nil
}

func (c *Classifier) buildPrompt(in workflow.ClassifyContext) string {
	var b strings.Builder

	if len(in.History) > 0 {
		b.WriteString("=== CONVERSATION HISTORY ===\n")
		b.WriteString(contextmgr.RenderTranscript(in.History))
		b.WriteString("\n=== END HISTORY ===\n\n")
	}

	theme := in.Theme
	if theme == "" {
		theme = "none"
	}
	fmt.Fprintf(&b, "CURRENT STATE:\n- Previous theme: %s\n- Turn count: %d\n\n", theme, in.TurnCount)
	fmt.Fprintf(&b, "CURRENT USER INPUT: %q\n", in.UserInput)

	return b.String()
}

// parseClassifierReply extracts the line-oriented fields from a classifier
// response. Missing fields keep conversational defaults so a sloppy reply
// still produces a harmless route.
func parseClassifierReply(text string) (decision, requestType, theme, reply string) {
	decision = "appropriate"
	requestType = "conversational"
	reply = strings.TrimSpace(text)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "DECISION:"):
			decision = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "DECISION:")))
		case strings.HasPrefix(line, "REQUEST_TYPE:"):
			requestType = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "REQUEST_TYPE:")))
		case strings.HasPrefix(line, "THEME:"):
			theme = strings.TrimSpace(strings.TrimPrefix(line, "THEME:"))
		case strings.HasPrefix(line, "RESPONSE:"):
			reply = strings.TrimSpace(strings.TrimPrefix(line, "RESPONSE:"))
		}
	}

	if strings.EqualFold(theme, "none") {
		theme = ""
	}
	return decision, requestType, theme, reply
}
