package workflow

import "starlit/pkg/story"

// IterationController enforces the revision budget of the generate/validate
// loop. Each rejection is recorded; when the budget is exhausted the current
// draft is accepted anyway rather than looping forever.
type IterationController struct {
	maxIterations int
}

// NewIterationController creates a controller with the given revision budget.
// Budgets below 1 are clamped to 1.
func NewIterationController(maxIterations int) *IterationController {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &IterationController{maxIterations: maxIterations}
}

// MaxIterations returns the revision budget.
func (c *IterationController) MaxIterations() int {
	return c.maxIterations
}

// OnRejection records a validator rejection on the state and reports whether
// the revision budget is now exhausted. The feedback record carries the
// iteration count as it was when the rejected draft was produced.
func (c *IterationController) OnRejection(st *story.State, feedback string) (exhausted bool) {
	st.AddFeedback(false, feedback)
	st.IterationCount++
	return st.IterationCount >= c.maxIterations
}

// CanIterate reports whether another generation attempt is allowed.
func (c *IterationController) CanIterate(st *story.State) bool {
	return st.IterationCount < c.maxIterations
}
