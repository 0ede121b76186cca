package contextmgr

import (
	"strings"
	"testing"

	"starlit/pkg/story"
)

func messages(n int) []story.ChatMessage {
	out := make([]story.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := story.RoleUser
		if i%2 == 1 {
			role = story.RoleAgent
		}
		out = append(out, story.ChatMessage{Role: role, Content: strings.Repeat("word ", 10)})
	}
	return out
}

func TestWindowKeepsRecent(t *testing.T) {
	m := NewManager(4, nil)
	msgs := messages(10)

	got := m.Window(msgs)
	if len(got) != 4 {
		t.Fatalf("expected window of 4, got %d", len(got))
	}
	if &got[3] != &msgs[9] {
		t.Error("window should end at the most recent message")
	}
}

func TestWindowSmallHistory(t *testing.T) {
	m := NewManager(10, nil)
	msgs := messages(3)

	if got := m.Window(msgs); len(got) != 3 {
		t.Errorf("expected all 3 messages, got %d", len(got))
	}
}

func TestWindowWithBudget(t *testing.T) {
	// nil counter falls back to len/4 estimation; each message is ~12 tokens.
	m := NewManager(10, nil)
	msgs := messages(8)

	got := m.WindowWithBudget(msgs, 30)
	if len(got) == 0 {
		t.Fatal("budget window must keep at least one message")
	}
	if len(got) >= 8 {
		t.Errorf("expected budget to trim history, kept %d", len(got))
	}

	// Final message is always present even when over budget on its own.
	tiny := m.WindowWithBudget(msgs, 1)
	if len(tiny) != 1 {
		t.Errorf("expected exactly the final message, got %d", len(tiny))
	}
}

func TestRenderTranscript(t *testing.T) {
	msgs := []story.ChatMessage{
		{Role: story.RoleUser, Content: "tell me a story"},
		{Role: story.RoleAgent, Content: "once upon a time"},
	}

	got := RenderTranscript(msgs)
	if !strings.Contains(got, "User: tell me a story") || !strings.Contains(got, "Assistant: once upon a time") {
		t.Errorf("unexpected transcript: %q", got)
	}

	if RenderTranscript(nil) != "(no prior conversation)" {
		t.Error("empty history should render placeholder")
	}
}
