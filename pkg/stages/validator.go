package stages

import (
	"context"
	"fmt"

	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/story"
	"starlit/pkg/utils"
	"starlit/pkg/workflow"
)

// Validator judges drafts for age-appropriateness and theme adherence. The
// fast lexical safety scan happens in the engine before this stage runs; this
// stage is the contextual model judgment.
type Validator struct {
	client      llm.Client
	temperature float32
	logger      *logx.Logger
}

// NewValidator creates the review stage.
func NewValidator(client llm.Client, temperature float32) *Validator {
	return &Validator{
		client:      client,
		temperature: temperature,
		logger:      logx.NewLogger("validator"),
	}
}

type validatorReply struct {
	Approved bool     `json:"approved"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons"`
	Feedback string   `json:"feedback_for_generator"`
}

// Validate implements workflow.Validator.
func (v *Validator) Validate(ctx context.Context, artifact story.Artifact, theme string) (workflow.Verdict, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(validatorSystemPrompt),
		llm.NewUserMessage(fmt.Sprintf(
			"Check this story for appropriateness and theme adherence:\n\nTitle: %s\nExpected theme: %s\n\nStory:\n%s\n\nProvide your analysis as strict JSON with keys: approved, score, reasons, feedback_for_generator",
			artifact.Title, theme, artifact.Body)),
	})
	req.Temperature = v.temperature

	resp, err := v.client.Complete(ctx, req)
	if err != nil {
		return workflow.Verdict{}, fmt.Errorf("validate completion: %w", err)
	}

	var reply validatorReply
	if err := utils.UnmarshalLLMJSON(resp.Content, &reply); err != nil {
		// An unreadable verdict never approves a draft.
		v.logger.Warn("Unparseable validator reply, rejecting draft: %v", err)
		return workflow.Verdict{
			Approved: false,
			Reasons:  []string{"failed to validate story"},
			Feedback: "Unable to validate. Please regenerate.",
		}, nil
	}

	if reply.Approved {
		v.logger.Info("Story %q approved (score %.2f)", artifact.Title, reply.Score)
	} else {
		v.logger.Info("Story %q rejected (score %.2f): %v", artifact.Title, reply.Score, reply.Reasons)
	}

	return workflow.Verdict{
		Approved: reply.Approved,
		Score:    reply.Score,
		Reasons:  reply.Reasons,
		Feedback: reply.Feedback,
	}, nil
}
