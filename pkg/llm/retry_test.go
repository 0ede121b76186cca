package llm

import (
	"context"
	"errors"
	"testing"

	"starlit/pkg/llm/llmerrors"
)

// failingClient returns classified errors a fixed number of times, then succeeds.
type failingClient struct {
	failures  int
	errType   llmerrors.ErrorType
	callCount int
}

func (f *failingClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return CompletionResponse{}, llmerrors.NewError(f.errType, "induced failure")
	}
	return CompletionResponse{Content: "ok"}, nil
}

func (f *failingClient) Stream(_ context.Context, _ CompletionRequest) (<-chan StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (f *failingClient) GetModelName() string { return "test/failing" }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	client := &failingClient{failures: 2, errType: llmerrors.ErrorTypeTransient}
	retryable := NewRetryableClient(client)

	resp, err := retryable.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if client.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", client.callCount)
	}
}

func TestRetryDoesNotRetryAuthErrors(t *testing.T) {
	client := &failingClient{failures: 10, errType: llmerrors.ErrorTypeAuth}
	retryable := NewRetryableClient(client)

	_, err := retryable.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if err == nil {
		t.Fatal("expected auth error")
	}
	if client.callCount != 1 {
		t.Errorf("auth errors must not be retried, got %d calls", client.callCount)
	}
	if !llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
		t.Errorf("expected auth error type, got: %v", err)
	}
}

func TestRetryExhaustionPromotesToServiceUnavailable(t *testing.T) {
	client := &failingClient{failures: 100, errType: llmerrors.ErrorTypeTransient}
	retryable := NewRetryableClient(client)

	_, err := retryable.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !llmerrors.IsServiceUnavailable(err) {
		t.Errorf("expected service_unavailable after exhaustion, got: %v", err)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	client := &failingClient{failures: 100, errType: llmerrors.ErrorTypeRateLimit}
	retryable := NewRetryableClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryable.Complete(ctx, NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
