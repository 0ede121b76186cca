package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"starlit/pkg/story"
)

func TestIterationControllerBudget(t *testing.T) {
	c := NewIterationController(3)
	st := story.NewState("t1")

	assert.True(t, c.CanIterate(st))

	exhausted := c.OnRejection(st, "too scary")
	assert.False(t, exhausted)
	assert.Equal(t, 1, st.IterationCount)

	exhausted = c.OnRejection(st, "still too scary")
	assert.False(t, exhausted)

	exhausted = c.OnRejection(st, "no improvement")
	assert.True(t, exhausted)
	assert.Equal(t, 3, st.IterationCount)
	assert.False(t, c.CanIterate(st))
}

func TestIterationControllerRecordsFeedback(t *testing.T) {
	c := NewIterationController(3)
	st := story.NewState("t1")

	c.OnRejection(st, "first")
	c.OnRejection(st, "second")

	assert.Len(t, st.FeedbackHistory, 2)
	// Each record carries the iteration count the rejected draft was made at.
	assert.Equal(t, 0, st.FeedbackHistory[0].Iteration)
	assert.Equal(t, "first", st.FeedbackHistory[0].Notes)
	assert.Equal(t, 1, st.FeedbackHistory[1].Iteration)
	assert.False(t, st.FeedbackHistory[0].Approved)
}

func TestIterationControllerClampsBudget(t *testing.T) {
	c := NewIterationController(0)
	assert.Equal(t, 1, c.MaxIterations())

	st := story.NewState("t1")
	assert.True(t, c.OnRejection(st, "rejected"))
}
