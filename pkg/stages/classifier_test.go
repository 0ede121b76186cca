package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starlit/pkg/llm"
	"starlit/pkg/story"
	"starlit/pkg/workflow"
)

func TestClassifierRouting(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantRoute   story.Route
		wantType    story.RequestType
		wantTheme   string
		wantReply   string
	}{
		{
			name: "new story request",
			reply: "DECISION: appropriate\nREQUEST_TYPE: new_story\nTHEME: a brave rabbit\nRESPONSE:",
			wantRoute: story.RouteGenerate,
			wantType:  story.RequestNew,
			wantTheme: "a brave rabbit",
		},
		{
			name: "modification of previous story",
			reply: "DECISION: appropriate\nREQUEST_TYPE: modify_story\nTHEME: make the rabbit win\nRESPONSE:",
			wantRoute: story.RouteGenerate,
			wantType:  story.RequestModify,
			wantTheme: "make the rabbit win",
		},
		{
			name: "classic story request",
			reply: "DECISION: appropriate\nREQUEST_TYPE: retrieve_classic_story\nTHEME: goldilocks\nRESPONSE:",
			wantRoute: story.RouteRetrieve,
			wantType:  story.RequestRetrieve,
			wantTheme: "goldilocks",
		},
		{
			name: "greeting is conversational",
			reply: "DECISION: appropriate\nREQUEST_TYPE: conversational\nTHEME: none\nRESPONSE: Hello! Want a story?",
			wantRoute: story.RouteRespond,
			wantReply: "Hello! Want a story?",
		},
		{
			name: "inappropriate theme refused",
			reply: "DECISION: inappropriate\nREQUEST_TYPE: inappropriate\nTHEME: zombies\nRESPONSE: How about friendly dragons instead?",
			wantRoute: story.RouteRefuse,
			wantTheme: "zombies",
			wantReply: "How about friendly dragons instead?",
		},
		{
			name:      "unstructured reply defaults to conversational",
			reply:     "I am not sure what you mean.",
			wantRoute: story.RouteRespond,
			wantReply: "I am not sure what you mean.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClientWithText(tt.reply)
			c := NewClassifier(mock, 0.3)

			out, err := c.Classify(context.Background(), workflow.ClassifyContext{
				UserInput: "whatever the user said",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantRoute, out.Route)
			assert.Equal(t, tt.wantType, out.RequestType)
			assert.Equal(t, tt.wantTheme, out.Theme)
			assert.Equal(t, tt.wantReply, out.Response)
		})
	}
}

func TestClassifierPromptIncludesHistory(t *testing.T) {
	mock := llm.NewMockClientWithText("DECISION: appropriate\nREQUEST_TYPE: conversational\nTHEME: none\nRESPONSE: hi")
	c := NewClassifier(mock, 0.3)

	_, err := c.Classify(context.Background(), workflow.ClassifyContext{
		UserInput: "make it longer",
		History: []story.ChatMessage{
			{Role: story.RoleUser, Content: "tell me a rabbit story"},
			{Role: story.RoleAgent, Content: "Shared the story \"The Brave Rabbit\"."},
		},
		Theme:     "rabbits",
		TurnCount: 2,
	})
	require.NoError(t, err)

	require.Len(t, mock.Requests, 1)
	prompt := mock.Requests[0].Messages[1].Content
	assert.Contains(t, prompt, "CONVERSATION HISTORY")
	assert.Contains(t, prompt, "User: tell me a rabbit story")
	assert.Contains(t, prompt, `Assistant: Shared the story "The Brave Rabbit".`)
	assert.Contains(t, prompt, "Previous theme: rabbits")
	assert.Contains(t, prompt, `"make it longer"`)
}

func TestClassifierPropagatesClientError(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{errors.New("model down")})
	c := NewClassifier(mock, 0.3)

	_, err := c.Classify(context.Background(), workflow.ClassifyContext{UserInput: "hi"})
	assert.Error(t, err)
}
