package llm

import (
	"context"
	"errors"
	"math"
	"time"

	"starlit/pkg/llm/llmerrors"
)

// RetryableClient wraps a Client with classified retry logic. Each error type
// carries its own backoff schedule; non-retryable errors are returned
// immediately, and transient errors that outlive their retry budget are
// promoted to service-unavailable.
type RetryableClient struct {
	client Client
}

// NewRetryableClient creates a new retryable LLM client.
func NewRetryableClient(client Client) *RetryableClient {
	return &RetryableClient{client: client}
}

// RetryMiddleware wraps clients with retry behavior as a composable middleware.
func RetryMiddleware() Middleware {
	return func(next Client) Client {
		return NewRetryableClient(next)
	}
}

// Complete implements Client with retry logic.
func (r *RetryableClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		resp, err := r.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		cfg, retryable := retryConfigFor(err)
		if !retryable || attempt >= cfg.MaxRetries {
			break
		}

		delay := calculateDelay(cfg, attempt+1)
		select {
		case <-ctx.Done():
			return CompletionResponse{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if llmerrors.Is(lastErr, llmerrors.ErrorTypeTransient) {
		cfg := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeTransient]
		return CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, cfg.MaxRetries)
	}
	return CompletionResponse{}, lastErr
}

// Stream implements Client with retry logic for stream establishment.
func (r *RetryableClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		ch, err := r.client.Stream(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		cfg, retryable := retryConfigFor(err)
		if !retryable || attempt >= cfg.MaxRetries {
			break
		}

		delay := calculateDelay(cfg, attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// GetModelName returns the model name of the wrapped client.
func (r *RetryableClient) GetModelName() string {
	return r.client.GetModelName()
}

// retryConfigFor derives the retry schedule for an error. Classified errors
// use their per-type configuration; everything else falls back to unknown.
func retryConfigFor(err error) (llmerrors.RetryConfig, bool) {
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.GetRetryConfig(), llmErr.IsRetryable()
	}
	return llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnknown], true
}

// calculateDelay computes the backoff delay for the given retry attempt.
func calculateDelay(cfg llmerrors.RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))

	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if cfg.Jitter {
		jitterFactor := float64(2*(time.Now().UnixNano()%2) - 1) // -1 or 1
		jitter := time.Duration(float64(delay) * 0.1 * jitterFactor)
		delay += jitter
		if delay < 0 {
			delay = cfg.InitialDelay
		}
	}

	return delay
}
