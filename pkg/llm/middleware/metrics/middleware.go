package metrics

import (
	"context"
	"time"

	"starlit/pkg/llm"
	"starlit/pkg/llm/llmerrors"
	"starlit/pkg/utils"
)

// Middleware returns an LLM middleware that records request counts, token
// usage, and latency for every completion. Thread and stage labels are read
// from the request context via WithThreadID and WithStage.
func Middleware(recorder Recorder, counter *utils.TokenCounter) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				} else {
					for i := range req.Messages {
						promptTokens += counter.CountTokens(req.Messages[i].Content)
					}
					completionTokens = counter.CountTokens(resp.Content)
				}

				recorder.ObserveRequest(
					next.GetModelName(),
					ThreadIDFrom(ctx),
					StageFrom(ctx),
					promptTokens, completionTokens,
					err == nil,
					errorType,
					duration,
				)

				return resp, err
			},
			next.Stream,
			next.GetModelName,
		)
	}
}
