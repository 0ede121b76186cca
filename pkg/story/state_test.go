package story

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLengthTier(t *testing.T) {
	tests := []struct {
		in   string
		want LengthTier
	}{
		{"short", TierShort},
		{"SHORT", TierShort},
		{"  long ", TierLong},
		{"medium", TierMedium},
		{"", TierMedium},
		{"gigantic", TierMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLengthTier(tt.in), "input %q", tt.in)
	}
}

func TestLengthTargets(t *testing.T) {
	short := LengthTargets(TierShort)
	assert.Equal(t, WordBounds{Min: 200, Max: 400, Target: 300}, short)

	medium := LengthTargets(TierMedium)
	assert.Equal(t, WordBounds{Min: 400, Max: 800, Target: 600}, medium)

	long := LengthTargets(TierLong)
	assert.Equal(t, WordBounds{Min: 800, Max: 1200, Target: 1000}, long)

	// Unknown tiers fall back to medium bounds.
	assert.Equal(t, medium, LengthTargets(LengthTier("huge")))
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState("t-1")
	assert.Equal(t, "t-1", s.ThreadID)
	assert.Equal(t, RequestNew, s.RequestType)
	assert.Equal(t, TierMedium, s.LengthTier)
	assert.Zero(t, s.TurnCount)
	assert.Zero(t, s.IterationCount)
}

func TestBeginTurn(t *testing.T) {
	s := NewState("t-1")
	s.FinalOutput = "old"
	s.ErrorMessage = "old error"
	s.Route = RouteDone
	s.AppendUser("first")
	s.ApprovedArtifact = &Artifact{Title: "Kept"}

	s.BeginTurn("tell me a story")

	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, "tell me a story", s.UserInput)
	assert.Empty(t, s.FinalOutput)
	assert.Empty(t, s.ErrorMessage)
	assert.Equal(t, Route(""), s.Route)
	// Cross-turn state is preserved.
	assert.Len(t, s.History, 1)
	require.NotNil(t, s.ApprovedArtifact)
	assert.Equal(t, "Kept", s.ApprovedArtifact.Title)

	s.BeginTurn("another")
	assert.Equal(t, 2, s.TurnCount)
}

func TestHistoryAppendOnly(t *testing.T) {
	s := NewState("t-1")
	s.AppendUser("hello")
	s.AppendAgent("hi there")
	s.AppendUser("make it longer")

	require.Len(t, s.History, 3)
	assert.Equal(t, RoleUser, s.History[0].Role)
	assert.Equal(t, RoleAgent, s.History[1].Role)
	assert.Equal(t, "make it longer", s.History[2].Content)
}

func TestRecentHistory(t *testing.T) {
	s := NewState("t-1")
	for i := 0; i < 5; i++ {
		s.AppendUser("msg")
	}

	assert.Len(t, s.RecentHistory(3), 3)
	assert.Len(t, s.RecentHistory(10), 5)
	assert.Nil(t, s.RecentHistory(0))
	assert.Nil(t, NewState("empty").RecentHistory(4))
}

func TestAddFeedback(t *testing.T) {
	s := NewState("t-1")
	s.IterationCount = 2
	s.AddFeedback(false, "too short")

	require.Len(t, s.FeedbackHistory, 1)
	fb := s.FeedbackHistory[0]
	assert.Equal(t, 2, fb.Iteration)
	assert.False(t, fb.Approved)
	assert.Equal(t, "too short", fb.Notes)
	assert.False(t, fb.When.IsZero())
}

func TestApprove(t *testing.T) {
	s := NewState("t-1")

	err := s.Approve()
	assert.Error(t, err, "approving without a draft should fail")

	s.LastArtifact = &Artifact{Title: "The Brave Mouse", Body: "Once upon a time..."}
	s.IterationCount = 2

	require.NoError(t, s.Approve())
	require.NotNil(t, s.ApprovedArtifact)
	assert.Equal(t, "The Brave Mouse", s.ApprovedArtifact.Title)
	assert.Zero(t, s.IterationCount, "approval resets the iteration counter")
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := NewState("t-json")
	s.BeginTurn("a story about stars")
	s.AppendUser("a story about stars")
	s.Theme = "stars"
	s.LengthTier = TierShort
	s.LastArtifact = &Artifact{Title: "Starlight", Body: "body", Moral: "wonder", WordCount: 300}
	s.AddFeedback(true, "lovely")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got State
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, s.ThreadID, got.ThreadID)
	assert.Equal(t, s.Theme, got.Theme)
	assert.Equal(t, s.LengthTier, got.LengthTier)
	assert.Equal(t, s.TurnCount, got.TurnCount)
	require.NotNil(t, got.LastArtifact)
	assert.Equal(t, "Starlight", got.LastArtifact.Title)
	require.Len(t, got.FeedbackHistory, 1)
	assert.True(t, got.FeedbackHistory[0].Approved)
}
