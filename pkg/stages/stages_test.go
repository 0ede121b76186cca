package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starlit/pkg/llm"
	"starlit/pkg/retrieval"
	"starlit/pkg/story"
	"starlit/pkg/workflow"
)

func TestGeneratorParsesReply(t *testing.T) {
	mock := llm.NewMockClientWithText(`{"title": "The Brave Rabbit", "story": "Once there was a rabbit who learned to be brave.", "notes": "gentle"}`)
	g := NewGenerator(mock, 0.8)

	artifact, err := g.Generate(context.Background(), workflow.GenerateRequest{
		Theme:       "brave rabbits",
		RequestType: story.RequestNew,
		Tier:        story.TierShort,
	})
	require.NoError(t, err)

	assert.Equal(t, "The Brave Rabbit", artifact.Title)
	assert.Contains(t, artifact.Body, "rabbit")
	assert.Equal(t, "generated", artifact.Source)
	assert.Positive(t, artifact.WordCount)
}

func TestGeneratorHandlesFencedJSON(t *testing.T) {
	mock := llm.NewMockClientWithText("```json\n{\"title\": \"T\", \"story\": \"A story.\", \"notes\": \"\"}\n```")
	g := NewGenerator(mock, 0.8)

	artifact, err := g.Generate(context.Background(), workflow.GenerateRequest{Tier: story.TierMedium})
	require.NoError(t, err)
	assert.Equal(t, "T", artifact.Title)
}

func TestGeneratorPromptCarriesRevisionContext(t *testing.T) {
	mock := llm.NewMockClientWithText(`{"title": "T", "story": "S", "notes": ""}`)
	g := NewGenerator(mock, 0.8)

	_, err := g.Generate(context.Background(), workflow.GenerateRequest{
		Theme:       "rabbits",
		RequestType: story.RequestModify,
		Tier:        story.TierShort,
		Previous:    &story.Artifact{Title: "Old Title", Body: "Old body."},
		Feedback:    "add a gentler ending",
	})
	require.NoError(t, err)

	prompt := mock.Requests[0].Messages[1].Content
	assert.Contains(t, prompt, "Old Title")
	assert.Contains(t, prompt, "Old body.")
	assert.Contains(t, prompt, "add a gentler ending")
	assert.Contains(t, prompt, "200-400 words")
}

func TestGeneratorRejectsMalformedReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Here is your story! Once upon a time..."},
		{"missing story", `{"title": "T", "notes": ""}`},
		{"missing title", `{"story": "S"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(llm.NewMockClientWithText(tt.reply), 0.8)
			_, err := g.Generate(context.Background(), workflow.GenerateRequest{Tier: story.TierMedium})
			assert.Error(t, err)
		})
	}
}

func TestValidatorVerdicts(t *testing.T) {
	artifact := story.Artifact{Title: "T", Body: "A fine story."}

	t.Run("approved", func(t *testing.T) {
		mock := llm.NewMockClientWithText(`{"approved": true, "score": 0.92, "reasons": ["wholesome"], "feedback_for_generator": ""}`)
		v := NewValidator(mock, 0.2)

		verdict, err := v.Validate(context.Background(), artifact, "kindness")
		require.NoError(t, err)
		assert.True(t, verdict.Approved)
		assert.InDelta(t, 0.92, verdict.Score, 0.001)
	})

	t.Run("rejected with feedback", func(t *testing.T) {
		mock := llm.NewMockClientWithText(`{"approved": false, "score": 0.4, "reasons": ["off theme"], "feedback_for_generator": "stay on the kindness theme"}`)
		v := NewValidator(mock, 0.2)

		verdict, err := v.Validate(context.Background(), artifact, "kindness")
		require.NoError(t, err)
		assert.False(t, verdict.Approved)
		assert.Equal(t, "stay on the kindness theme", verdict.Feedback)
	})

	t.Run("unparseable reply rejects", func(t *testing.T) {
		mock := llm.NewMockClientWithText("Looks great to me!")
		v := NewValidator(mock, 0.2)

		verdict, err := v.Validate(context.Background(), artifact, "kindness")
		require.NoError(t, err)
		assert.False(t, verdict.Approved)
		assert.NotEmpty(t, verdict.Feedback)
	})

	t.Run("client error propagates", func(t *testing.T) {
		mock := llm.NewMockClient(nil, []error{errors.New("down")})
		v := NewValidator(mock, 0.2)

		_, err := v.Validate(context.Background(), artifact, "kindness")
		assert.Error(t, err)
	})
}

func TestRetrieverCatalogFastPath(t *testing.T) {
	catalog, err := retrieval.LoadCatalog()
	require.NoError(t, err)

	// The mock has no responses, so any model call would error.
	r := NewRetriever(llm.NewMockClientWithText(), 0.5, catalog)

	result, err := r.Retrieve(context.Background(), "the tortoise and the hare")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "The Tortoise and the Hare", result.Title)
	assert.NotEmpty(t, result.Body)
}

func TestRetrieverFallsBackToModel(t *testing.T) {
	catalog, err := retrieval.LoadCatalog()
	require.NoError(t, err)

	mock := llm.NewMockClientWithText(`{"title": "The Little Red Hen", "story": "Once there was a hen.", "provenance": "folk tale", "found": true, "reason": ""}`)
	r := NewRetriever(mock, 0.5, catalog)

	result, err := r.Retrieve(context.Background(), "the little red hen")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "The Little Red Hen", result.Title)
	assert.Len(t, mock.Requests, 1)
}

func TestRetrieverMiss(t *testing.T) {
	mock := llm.NewMockClientWithText(`{"title": "", "story": "", "provenance": "", "found": false, "reason": "not a known classic"}`)
	r := NewRetriever(mock, 0.5, nil)

	result, err := r.Retrieve(context.Background(), "my cousin's bedtime story")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, "not a known classic", result.Reason)
}

func TestRetrieverIncompleteHitBecomesMiss(t *testing.T) {
	mock := llm.NewMockClientWithText(`{"title": "Something", "story": "", "found": true}`)
	r := NewRetriever(mock, 0.5, nil)

	result, err := r.Retrieve(context.Background(), "something")
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestRetrieverUnparseableReplyIsMiss(t *testing.T) {
	mock := llm.NewMockClientWithText("I don't know that one, sorry!")
	r := NewRetriever(mock, 0.5, nil)

	result, err := r.Retrieve(context.Background(), "mystery story")
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestSummarizer(t *testing.T) {
	mock := llm.NewMockClientWithText("  Kindness always comes back to you.  ")
	s := NewSummarizer(mock, 0.3)

	moral, err := s.Summarize(context.Background(), story.Artifact{Title: "T", Body: "B"})
	require.NoError(t, err)
	assert.Equal(t, "Kindness always comes back to you.", moral)
}

func TestSummarizerEmptyReplyIsError(t *testing.T) {
	mock := llm.NewMockClientWithText("   ")
	s := NewSummarizer(mock, 0.3)

	_, err := s.Summarize(context.Background(), story.Artifact{Title: "T", Body: "B"})
	assert.Error(t, err)
}

func TestFormatter(t *testing.T) {
	mock := llm.NewMockClientWithText("# The Brave Rabbit\n\nOnce upon a time...\n\n---\n\n**Moral:** Be brave.")
	f := NewFormatter(mock, 0.1)

	doc, err := f.Format(context.Background(), story.Artifact{Title: "The Brave Rabbit", Body: "Once upon a time..."}, "Be brave.")
	require.NoError(t, err)
	assert.Contains(t, doc, "# The Brave Rabbit")
	assert.Contains(t, doc, "**Moral:**")

	prompt := mock.Requests[0].Messages[1].Content
	assert.Contains(t, prompt, "Moral: Be brave.")
}
