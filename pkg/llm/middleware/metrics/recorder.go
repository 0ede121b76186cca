// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"context"
	"time"
)

// Recorder abstracts metrics collection for LLM requests.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, threadID, stage string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NopRecorder discards all observations. Useful in tests.
type NopRecorder struct{}

// ObserveRequest implements Recorder.
func (NopRecorder) ObserveRequest(_, _, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

type contextKey int

const (
	threadIDKey contextKey = iota
	stageKey
)

// WithThreadID attaches a thread identifier to the context so that the metrics
// middleware can label requests made on behalf of that thread.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey, threadID)
}

// WithStage attaches a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// ThreadIDFrom extracts the thread identifier from the context, if any.
func ThreadIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(threadIDKey).(string); ok {
		return v
	}
	return ""
}

// StageFrom extracts the pipeline stage name from the context, if any.
func StageFrom(ctx context.Context) string {
	if v, ok := ctx.Value(stageKey).(string); ok {
		return v
	}
	return ""
}
