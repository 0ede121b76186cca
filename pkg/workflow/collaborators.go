// Package workflow implements the stateful story pipeline: a directed graph
// of stages connected by conditional routing, a bounded generate/validate
// feedback loop, and per-thread persisted state resumed across invocations.
package workflow

import (
	"context"

	"starlit/pkg/story"
)

// ClassifyContext carries the inputs the classifier sees for one turn.
type ClassifyContext struct {
	UserInput string
	History   []story.ChatMessage
	Theme     string
	TurnCount int
}

// Classification is the classifier's decision for a turn.
type Classification struct {
	Route       story.Route
	Theme       string
	RequestType story.RequestType
	// Response carries a direct reply for conversational and refusal paths.
	Response string
}

// Classifier decides how to route a user turn.
type Classifier interface {
	Classify(ctx context.Context, in ClassifyContext) (Classification, error)
}

// GenerateRequest carries everything the generator needs for one draft.
type GenerateRequest struct {
	Theme       string
	Previous    *story.Artifact // set when revising or modifying an earlier draft
	Feedback    string          // most recent validator feedback, if any
	RequestType story.RequestType
	Tier        story.LengthTier
}

// Generator produces a story draft.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (story.Artifact, error)
}

// Verdict is the validator's judgment of a draft.
type Verdict struct {
	Approved bool
	Score    float64
	Reasons  []string
	Feedback string
}

// Validator judges a draft for age-appropriateness and theme adherence.
type Validator interface {
	Validate(ctx context.Context, artifact story.Artifact, theme string) (Verdict, error)
}

// RetrievalResult is the outcome of looking up a known story.
type RetrievalResult struct {
	Title      string
	Body       string
	Provenance string
	Found      bool
	Reason     string
}

// Retriever supplies canonical versions of named classic stories.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (RetrievalResult, error)
}

// Summarizer extracts a short moral from an approved story.
type Summarizer interface {
	Summarize(ctx context.Context, artifact story.Artifact) (string, error)
}

// Formatter renders an approved story and its moral as a display document.
type Formatter interface {
	Format(ctx context.Context, artifact story.Artifact, moral string) (string, error)
}

// Collaborators bundles the external content-producing functions the engine
// drives. The engine owns control flow and state; collaborators own content.
type Collaborators struct {
	Classifier Classifier
	Generator  Generator
	Validator  Validator
	Retriever  Retriever
	Summarizer Summarizer
	Formatter  Formatter
}
