// Package contextmgr bounds the conversation context rendered into prompts.
// Stages never see unbounded history: the window keeps the most recent
// messages, optionally constrained by a token budget.
package contextmgr

import (
	"strings"

	"starlit/pkg/story"
	"starlit/pkg/utils"
)

// Manager produces bounded views of conversation history.
type Manager struct {
	window  int
	counter *utils.TokenCounter
}

// NewManager creates a context manager keeping at most window messages.
func NewManager(window int, counter *utils.TokenCounter) *Manager {
	if window < 1 {
		window = 1
	}
	return &Manager{window: window, counter: counter}
}

// Window returns the most recent messages, bounded by the configured count.
func (m *Manager) Window(messages []story.ChatMessage) []story.ChatMessage {
	if len(messages) <= m.window {
		return messages
	}
	return messages[len(messages)-m.window:]
}

// WindowWithBudget returns the most recent messages whose combined token count
// stays within budget. At least the final message is always included.
func (m *Manager) WindowWithBudget(messages []story.ChatMessage, budget int) []story.ChatMessage {
	windowed := m.Window(messages)
	if len(windowed) == 0 || budget <= 0 {
		return windowed
	}

	total := 0
	start := len(windowed)
	for i := len(windowed) - 1; i >= 0; i-- {
		tokens := m.counter.CountTokens(windowed[i].Content)
		if total+tokens > budget && start < len(windowed) {
			break
		}
		total += tokens
		start = i
	}
	return windowed[start:]
}

// RenderTranscript formats a message window as plain text for inclusion in a
// prompt body.
func RenderTranscript(messages []story.ChatMessage) string {
	if len(messages) == 0 {
		return "(no prior conversation)"
	}

	var b strings.Builder
	for i := range messages {
		label := "User"
		if messages[i].Role == story.RoleAgent {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(messages[i].Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
