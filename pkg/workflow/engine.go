package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"starlit/pkg/config"
	"starlit/pkg/contextmgr"
	"starlit/pkg/llm/middleware/metrics"
	"starlit/pkg/logx"
	"starlit/pkg/safety"
	"starlit/pkg/state"
	"starlit/pkg/story"
	"starlit/pkg/utils"
)

// Generic user-facing texts for collaborator failures.
const (
	genericApology = "I'm sorry, something went wrong on my end. Could you try asking again?"
	genericMoral   = "Every story has something to teach us."
	noOutputError  = "Story generation did not produce output. Please try a different request."
)

// maxStageSteps bounds a single run. The longest legitimate path is
// classify + maxIterations generate/validate pairs + summarize + format;
// anything past this indicates a routing bug.
const maxStageSteps = 32

// TurnResult is what one workflow invocation hands back to the caller.
type TurnResult struct {
	Success  bool        `json:"success"`
	Story    string      `json:"story,omitempty"`
	Title    string      `json:"title,omitempty"`
	Moral    string      `json:"moral,omitempty"`
	Document string      `json:"document,omitempty"`
	Error    string      `json:"error,omitempty"`
	ThreadID string      `json:"thread_id"`
	Route    story.Route `json:"route"`
}

// Engine drives the story pipeline: it owns state load/save, routing, the
// iteration budget, and every per-stage failure fallback. Content production
// is delegated entirely to the collaborators.
type Engine struct {
	store   state.Store
	locks   *state.Locks
	collab  Collaborators
	cfg     *config.Config
	iter    *IterationController
	logger  *logx.Logger
	window  *contextmgr.Manager
}

// NewEngine creates a workflow engine.
func NewEngine(store state.Store, collab Collaborators, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Engine{
		store:  store,
		locks:  state.NewLocks(),
		collab: collab,
		cfg:    cfg,
		iter:   NewIterationController(cfg.MaxIterations),
		logger: logx.NewLogger("workflow"),
		window: contextmgr.NewManager(cfg.HistoryWindow, nil),
	}
}

// RunTurn executes one conversational turn for a thread. An empty threadID
// starts a new conversation and the generated ID is returned in the result.
// Runs for the same thread are serialized; distinct threads proceed in
// parallel.
func (e *Engine) RunTurn(ctx context.Context, threadID, userInput, lengthTier string) (TurnResult, error) {
	input := safety.Sanitize(userInput)
	if input == "" {
		return TurnResult{ThreadID: threadID, Error: "input cannot be empty"}, fmt.Errorf("input cannot be empty")
	}

	if threadID == "" {
		threadID = uuid.NewString()
		e.logger.Debug("Starting new conversation thread %s", threadID)
	}

	release := e.locks.Acquire(threadID)
	defer release()

	st := e.loadOrFresh(threadID)
	st.LengthTier = story.ParseLengthTier(lengthTier)
	st.BeginTurn(input)

	ctx = metrics.WithThreadID(ctx, threadID)

	e.logger.Info("Turn %d on thread %s: %s", st.TurnCount, threadID, logPreview(input))

	stage := EntryStage
	for steps := 0; stage != StageDone; steps++ {
		if steps >= maxStageSteps {
			e.logger.Error("Stage loop exceeded %d steps on thread %s at stage %s", maxStageSteps, threadID, stage)
			st.Route = story.RouteError
			st.ErrorMessage = "internal routing error"
			break
		}

		e.runStage(ctx, stage, st)
		next := Next(stage, st.Route)
		e.logger.Debug("Stage %s -> route %q -> %s", stage, st.Route, next)
		stage = next
	}

	if err := e.store.Save(threadID, st); err != nil {
		// A lost snapshot corrupts the conversation; surface it.
		return TurnResult{ThreadID: threadID, Route: st.Route, Error: "failed to persist conversation state"},
			fmt.Errorf("failed to persist state for thread %s: %w", threadID, err)
	}

	result := e.buildResult(threadID, st)
	countRun(string(st.Route))
	return result, nil
}

// loadOrFresh loads prior thread state, falling back to a fresh state when
// none exists or the load fails. Load failures are logged, never fatal.
func (e *Engine) loadOrFresh(threadID string) *story.State {
	st, found, err := e.store.Load(threadID)
	if err != nil {
		e.logger.Warn("Failed to load state for thread %s, starting fresh: %v", threadID, err)
		return story.NewState(threadID)
	}
	if !found {
		return story.NewState(threadID)
	}
	st.ThreadID = threadID
	return st
}

// runStage executes one stage under its configured timeout and applies the
// stage's state mutations, including its failure fallback.
func (e *Engine) runStage(ctx context.Context, stage Stage, st *story.State) {
	sc := e.cfg.Stage(string(stage))
	stageCtx, cancel := context.WithTimeout(metrics.WithStage(ctx, string(stage)), sc.Timeout())
	defer cancel()

	start := time.Now()
	switch stage {
	case StageClassify:
		e.runClassify(stageCtx, st)
	case StageGenerate:
		e.runGenerate(stageCtx, st)
	case StageValidate:
		e.runValidate(stageCtx, st)
	case StageRetrieve:
		e.runRetrieve(stageCtx, st)
	case StageSummarize:
		e.runSummarize(stageCtx, st)
	case StageFormat:
		e.runFormat(stageCtx, st)
	}
	observeStage(stage, time.Since(start))
}

func (e *Engine) runClassify(ctx context.Context, st *story.State) {
	in := ClassifyContext{
		UserInput: st.UserInput,
		History:   e.window.Window(st.History),
		Theme:     st.Theme,
		TurnCount: st.TurnCount,
	}

	decision, err := e.collab.Classifier.Classify(ctx, in)

	// The user turn enters the transcript regardless of the outcome.
	st.AppendUser(st.UserInput)

	if err != nil {
		e.logger.Warn("Classifier failed on thread %s: %v", st.ThreadID, err)
		st.Route = story.RouteError
		st.FinalOutput = genericApology
		st.ErrorMessage = err.Error()
		st.AppendAgent(st.FinalOutput)
		return
	}

	if decision.Theme != "" {
		st.Theme = decision.Theme
	}
	if decision.RequestType != "" {
		st.RequestType = decision.RequestType
	}
	st.Route = decision.Route

	switch decision.Route {
	case story.RouteRespond, story.RouteRefuse:
		st.FinalOutput = decision.Response
		if st.FinalOutput == "" && decision.Route == story.RouteRefuse {
			st.FinalOutput = safety.RejectionMessage(st.Theme)
		}
		if st.FinalOutput != "" {
			st.AppendAgent(st.FinalOutput)
		}
	case story.RouteError:
		st.FinalOutput = decision.Response
		if st.FinalOutput == "" {
			st.FinalOutput = genericApology
		}
		st.AppendAgent(st.FinalOutput)
	}
}

func (e *Engine) runGenerate(ctx context.Context, st *story.State) {
	req := GenerateRequest{
		Theme:       st.Theme,
		RequestType: st.RequestType,
		Tier:        st.LengthTier,
	}
	if st.RequestType == story.RequestModify || st.IterationCount > 0 {
		req.Previous = st.LastArtifact
	}
	if n := len(st.FeedbackHistory); n > 0 {
		req.Feedback = st.FeedbackHistory[n-1].Notes
	}

	artifact, err := e.collab.Generator.Generate(ctx, req)
	if err != nil || artifact.Title == "" || artifact.Body == "" {
		if err != nil {
			e.logger.Warn("Generator failed on thread %s: %v", st.ThreadID, err)
		} else {
			e.logger.Warn("Generator returned malformed artifact on thread %s", st.ThreadID)
		}
		// Leave the draft in an explicit error shape so validation fails closed.
		st.LastArtifact = &story.Artifact{Title: "Story Generation Error", Source: "error"}
		st.Route = story.RouteCheck
		return
	}

	if artifact.WordCount == 0 {
		artifact.WordCount = utils.CountWords(artifact.Body)
	}
	st.LastArtifact = &artifact
	st.Route = story.RouteCheck
}

func (e *Engine) runValidate(ctx context.Context, st *story.State) {
	draft := st.LastArtifact

	// Fail closed on missing or error-shaped drafts.
	if draft == nil || draft.Body == "" || draft.Source == "error" {
		e.reject(st, "validation error, please regenerate")
		return
	}

	// Phase 1: local safety scan before any model round trip.
	if ok, issues := safety.Scan(draft.Title+"\n"+draft.Body, e.cfg.StrictSafety); !ok {
		e.reject(st, "content safety: "+strings.Join(issues, "; "))
		return
	}

	// Phase 2: contextual judgment by the collaborator.
	verdict, err := e.collab.Validator.Validate(ctx, *draft, st.Theme)
	if err != nil {
		e.logger.Warn("Validator failed on thread %s: %v", st.ThreadID, err)
		e.reject(st, "validation error, please regenerate")
		return
	}

	if verdict.Approved {
		if err := st.Approve(); err != nil {
			e.reject(st, "validation error, please regenerate")
			return
		}
		st.Route = story.RouteApproved
		return
	}

	e.reject(st, verdict.Feedback)
}

// reject records a rejection and routes back to generation. When the revision
// budget is exhausted it accepts the current draft as-is, unless no usable
// draft exists, in which case the turn ends as an error.
func (e *Engine) reject(st *story.State, feedback string) {
	iterationsTotal.Inc()
	exhausted := e.iter.OnRejection(st, feedback)
	if !exhausted {
		st.Route = story.RouteIterate
		return
	}

	// A draft that never materialized cannot be accepted. End the turn as an
	// error and drop the placeholder so a prior approved story survives for
	// future modify requests.
	if st.LastArtifact == nil || st.LastArtifact.Body == "" || st.LastArtifact.Source == "error" {
		e.logger.Warn("Revision budget exhausted on thread %s with no usable draft", st.ThreadID)
		st.LastArtifact = nil
		st.IterationCount = 0
		st.Route = story.RouteError
		st.ErrorMessage = noOutputError
		return
	}

	forcedApprovalsTotal.Inc()
	e.logger.Warn("Revision budget exhausted on thread %s; accepting last draft despite rejection", st.ThreadID)
	st.ApprovedArtifact = st.LastArtifact
	st.IterationCount = 0
	st.Route = story.RouteApproved
}

func (e *Engine) runRetrieve(ctx context.Context, st *story.State) {
	query := st.Theme
	if query == "" {
		query = st.UserInput
	}

	result, err := e.collab.Retriever.Retrieve(ctx, query)
	if err != nil {
		e.logger.Warn("Retriever failed on thread %s, degrading to generation: %v", st.ThreadID, err)
		result = RetrievalResult{Found: false, Reason: err.Error()}
	}

	if !result.Found {
		e.logger.Debug("Story %q not found (%s); generating instead", query, result.Reason)
		st.RequestType = story.RequestNew
		st.Route = story.RouteGenerate
		return
	}

	st.LastArtifact = &story.Artifact{
		Title:     result.Title,
		Body:      result.Body,
		Source:    result.Provenance,
		WordCount: utils.CountWords(result.Body),
	}
	st.Route = story.RouteCheck
}

func (e *Engine) runSummarize(ctx context.Context, st *story.State) {
	if st.ApprovedArtifact == nil {
		st.CurrentMoral = genericMoral
		st.Route = story.RouteFormat
		return
	}

	moral, err := e.collab.Summarizer.Summarize(ctx, *st.ApprovedArtifact)
	if err != nil || moral == "" {
		if err != nil {
			e.logger.Warn("Summarizer failed on thread %s: %v", st.ThreadID, err)
		}
		moral = genericMoral
	}
	st.CurrentMoral = moral
	st.Route = story.RouteFormat
}

func (e *Engine) runFormat(ctx context.Context, st *story.State) {
	artifact := st.ApprovedArtifact
	if artifact == nil {
		artifact = st.LastArtifact
	}
	if artifact == nil {
		st.FinalOutput = genericApology
		st.Route = story.RouteDone
		return
	}

	doc, err := e.collab.Formatter.Format(ctx, *artifact, st.CurrentMoral)
	if err != nil || doc == "" {
		if err != nil {
			e.logger.Warn("Formatter failed on thread %s, using fallback document: %v", st.ThreadID, err)
		}
		doc = FallbackDocument(artifact, st.CurrentMoral)
	}

	st.FinalOutput = doc
	st.AppendAgent(fmt.Sprintf("Shared the story %q.", artifact.Title))
	st.Route = story.RouteDone
}

// FallbackDocument renders a story deterministically when the formatting
// collaborator is unavailable: title heading, body, moral footer.
func FallbackDocument(artifact *story.Artifact, moral string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s", artifact.Title, strings.TrimSpace(artifact.Body))
	if moral != "" {
		fmt.Fprintf(&b, "\n\n---\n\n**Moral:** %s", moral)
	}
	return b.String()
}

// buildResult maps terminal state to the caller-visible shape.
func (e *Engine) buildResult(threadID string, st *story.State) TurnResult {
	result := TurnResult{ThreadID: threadID, Route: st.Route}

	switch {
	case st.ApprovedArtifact != nil && (st.Route == story.RouteDone || st.Route == story.RouteApproved):
		result.Success = true
		result.Story = st.ApprovedArtifact.Body
		result.Title = st.ApprovedArtifact.Title
		result.Moral = st.CurrentMoral
		result.Document = st.FinalOutput
	case (st.Route == story.RouteRespond || st.Route == story.RouteRefuse) && st.FinalOutput != "":
		// Conversational and refusal replies carry no title; the reply text
		// itself is the output.
		result.Success = true
		result.Story = st.FinalOutput
	case st.Route == story.RouteError:
		result.Error = st.ErrorMessage
		if result.Error == "" {
			result.Error = genericApology
		}
		result.Story = st.FinalOutput
	case st.FinalOutput != "":
		result.Success = true
		result.Story = st.FinalOutput
	default:
		result.Error = noOutputError
	}

	return result
}

func logPreview(s string) string {
	const max = 50
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
