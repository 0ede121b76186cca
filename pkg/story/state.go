// Package story defines the conversational workflow state and its vocabulary:
// request types, length tiers, routing tokens, and the per-thread State record
// that every stage of the pipeline reads and mutates.
package story

import (
	"fmt"
	"strings"
	"time"
)

// RequestType classifies what the user asked for on this turn.
type RequestType string

const (
	RequestNew      RequestType = "new"
	RequestModify   RequestType = "modify"
	RequestRetrieve RequestType = "retrieve"
	RequestError    RequestType = "error"
)

// LengthTier selects the target story length.
type LengthTier string

const (
	TierShort  LengthTier = "short"
	TierMedium LengthTier = "medium"
	TierLong   LengthTier = "long"
)

// ParseLengthTier normalizes a tier string, defaulting to medium for
// anything unrecognized.
func ParseLengthTier(s string) LengthTier {
	switch LengthTier(strings.ToLower(strings.TrimSpace(s))) {
	case TierShort:
		return TierShort
	case TierLong:
		return TierLong
	default:
		return TierMedium
	}
}

// WordBounds gives the word-count envelope for a length tier.
type WordBounds struct {
	Min    int
	Max    int
	Target int
}

// LengthTargets returns the word-count bounds for a tier.
func LengthTargets(tier LengthTier) WordBounds {
	switch tier {
	case TierShort:
		return WordBounds{Min: 200, Max: 400, Target: 300}
	case TierLong:
		return WordBounds{Min: 800, Max: 1200, Target: 1000}
	default:
		return WordBounds{Min: 400, Max: 800, Target: 600}
	}
}

// Route is a token emitted by a stage telling the engine where to go next.
type Route string

const (
	RouteGenerate  Route = "generate"
	RouteRetrieve  Route = "retrieve"
	RouteCheck     Route = "check"
	RouteSummarize Route = "summarize"
	RouteFormat    Route = "format"
	RouteRespond   Route = "respond"
	RouteRefuse    Route = "refuse"
	RouteIterate   Route = "iterate"
	RouteApproved  Route = "approved"
	RouteError     Route = "error"
	RouteDone      Route = "done"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "assistant"
)

// ChatMessage is one entry in the conversation history.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Artifact is a generated or retrieved story.
type Artifact struct {
	Title     string `json:"title"`
	Body      string `json:"story"`
	Moral     string `json:"moral,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Feedback records one validator verdict on a draft.
type Feedback struct {
	Iteration int       `json:"iteration"`
	Approved  bool      `json:"approved"`
	Notes     string    `json:"notes"`
	When      time.Time `json:"when"`
}

// State is the complete per-thread workflow state. It is the unit of
// persistence; everything a turn needs survives a round trip through JSON.
type State struct {
	ThreadID    string      `json:"thread_id"`
	Theme       string      `json:"theme"`
	UserInput   string      `json:"user_input"`
	RequestType RequestType `json:"request_type"`
	LengthTier  LengthTier  `json:"length_tier"`
	TurnCount   int         `json:"turn_count"`

	History []ChatMessage `json:"history"`

	LastArtifact     *Artifact  `json:"last_artifact,omitempty"`
	ApprovedArtifact *Artifact  `json:"approved_artifact,omitempty"`
	IterationCount   int        `json:"iteration_count"`
	FeedbackHistory  []Feedback `json:"feedback_history,omitempty"`

	Route        Route  `json:"route"`
	CurrentMoral string `json:"current_moral,omitempty"`
	FinalOutput  string `json:"final_output,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewState creates a fresh thread state with defaults applied.
func NewState(threadID string) *State {
	return &State{
		ThreadID:    threadID,
		RequestType: RequestNew,
		LengthTier:  TierMedium,
	}
}

// BeginTurn resets per-turn fields and records the new user input. The
// conversation history and any approved artifact carry over unchanged.
func (s *State) BeginTurn(input string) {
	s.UserInput = input
	s.TurnCount++
	s.Route = ""
	s.FinalOutput = ""
	s.ErrorMessage = ""
}

// AppendUser adds a user message to the history.
func (s *State) AppendUser(content string) {
	s.History = append(s.History, ChatMessage{Role: RoleUser, Content: content})
}

// AppendAgent adds an assistant message to the history.
func (s *State) AppendAgent(content string) {
	s.History = append(s.History, ChatMessage{Role: RoleAgent, Content: content})
}

// RecentHistory returns a read-only view of the last n messages.
func (s *State) RecentHistory(n int) []ChatMessage {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	return s.History[len(s.History)-n:]
}

// AddFeedback records a validator verdict for the current iteration.
func (s *State) AddFeedback(approved bool, notes string) {
	s.FeedbackHistory = append(s.FeedbackHistory, Feedback{
		Iteration: s.IterationCount,
		Approved:  approved,
		Notes:     notes,
		When:      time.Now().UTC(),
	})
}

// Approve marks the current draft as the approved artifact and resets the
// iteration counter for the next revision cycle.
func (s *State) Approve() error {
	if s.LastArtifact == nil {
		return fmt.Errorf("no draft to approve on thread %s", s.ThreadID)
	}
	s.ApprovedArtifact = s.LastArtifact
	s.IterationCount = 0
	return nil
}
