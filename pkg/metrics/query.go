// Package metrics provides services for querying and aggregating metrics data.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ThreadMetrics represents aggregated LLM usage for one conversation thread.
type ThreadMetrics struct {
	ThreadID         string `json:"thread_id"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetThreadMetrics retrieves aggregated token usage for one thread, summed
// across every stage and model that served it.
func (q *QueryService) GetThreadMetrics(ctx context.Context, threadID string) (*ThreadMetrics, error) {
	metrics := &ThreadMetrics{
		ThreadID: threadID,
	}

	promptQuery := fmt.Sprintf(`sum(llm_tokens_total{thread_id=%q, type="prompt"})`, threadID)
	promptResult, _, err := q.queryAPI.Query(ctx, promptQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if vector, ok := promptResult.(model.Vector); ok && len(vector) > 0 {
		metrics.PromptTokens = int64(vector[0].Value)
	}

	completionQuery := fmt.Sprintf(`sum(llm_tokens_total{thread_id=%q, type="completion"})`, threadID)
	completionResult, _, err := q.queryAPI.Query(ctx, completionQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	if vector, ok := completionResult.(model.Vector); ok && len(vector) > 0 {
		metrics.CompletionTokens = int64(vector[0].Value)
	}

	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	requestsQuery := fmt.Sprintf(`sum(llm_requests_total{thread_id=%q})`, threadID)
	requestsResult, _, err := q.queryAPI.Query(ctx, requestsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}
	if vector, ok := requestsResult.(model.Vector); ok && len(vector) > 0 {
		metrics.Requests = int64(vector[0].Value)
	}

	return metrics, nil
}

// GetThreadMetricsByStage breaks thread usage down per pipeline stage, showing
// which stages consumed the tokens.
func (q *QueryService) GetThreadMetricsByStage(ctx context.Context, threadID string) (map[string]*ThreadMetrics, error) {
	result := make(map[string]*ThreadMetrics)

	stagesQuery := fmt.Sprintf(`group by (stage) (llm_tokens_total{thread_id=%q})`, threadID)
	stagesResult, _, err := q.queryAPI.Query(ctx, stagesQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}

	var stages []string
	if vector, ok := stagesResult.(model.Vector); ok {
		for _, sample := range vector {
			if stage, ok := sample.Metric["stage"]; ok {
				stages = append(stages, string(stage))
			}
		}
	}

	for _, stage := range stages {
		metrics := &ThreadMetrics{
			ThreadID: threadID,
		}

		promptQuery := fmt.Sprintf(`sum(llm_tokens_total{thread_id=%q, stage=%q, type="prompt"})`, threadID, stage)
		promptResult, _, err := q.queryAPI.Query(ctx, promptQuery, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query prompt tokens for stage %s: %w", stage, err)
		}
		if vector, ok := promptResult.(model.Vector); ok && len(vector) > 0 {
			metrics.PromptTokens = int64(vector[0].Value)
		}

		completionQuery := fmt.Sprintf(`sum(llm_tokens_total{thread_id=%q, stage=%q, type="completion"})`, threadID, stage)
		completionResult, _, err := q.queryAPI.Query(ctx, completionQuery, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query completion tokens for stage %s: %w", stage, err)
		}
		if vector, ok := completionResult.(model.Vector); ok && len(vector) > 0 {
			metrics.CompletionTokens = int64(vector[0].Value)
		}

		metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens
		result[stage] = metrics
	}

	return result, nil
}
