package llm

import (
	"context"
	"fmt"
)

// MockClient provides a controllable implementation of Client for testing.
type MockClient struct {
	responses     []CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	model         string

	// Requests records every completion request received, for assertions.
	Requests []CompletionRequest
}

// NewMockClient creates a new mock client with predefined responses.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
		model:     "mock/test-model",
	}
}

// NewMockClientWithText is a convenience constructor taking plain response texts.
func NewMockClientWithText(texts ...string) *MockClient {
	responses := make([]CompletionResponse, len(texts))
	for i, t := range texts {
		responses[i] = CompletionResponse{Content: t, StopReason: "end_turn"}
	}
	return NewMockClient(responses, nil)
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.Requests = append(m.Requests, req)

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Stream returns a channel that will receive the next predefined response.
func (m *MockClient) Stream(_ context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.Requests = append(m.Requests, req)

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return nil, err
	}

	if m.responseIndex >= len(m.responses) {
		return nil, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		ch <- StreamChunk{Content: resp.Content, Done: true}
	}()

	return ch, nil
}

// GetModelName returns the mock model name.
func (m *MockClient) GetModelName() string {
	return m.model
}
