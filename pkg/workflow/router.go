package workflow

import "starlit/pkg/story"

// Stage names the units of work in the pipeline.
type Stage string

const (
	StageClassify  Stage = "classify"
	StageGenerate  Stage = "generate"
	StageValidate  Stage = "validate"
	StageRetrieve  Stage = "retrieve"
	StageSummarize Stage = "summarize"
	StageFormat    Stage = "format"
	// StageDone is the terminal pseudo-stage.
	StageDone Stage = "done"
)

// transitions is the static state machine: for each stage, the next stage
// keyed by the route token the stage just set. Tokens absent from a stage's
// row fall through to defaultNext.
var transitions = map[Stage]map[story.Route]Stage{
	StageClassify: {
		story.RouteGenerate: StageGenerate,
		story.RouteRetrieve: StageRetrieve,
		story.RouteRespond:  StageDone,
		story.RouteRefuse:   StageDone,
		story.RouteError:    StageDone,
	},
	StageGenerate: {
		// Unconditional: every draft goes to validation.
	},
	StageRetrieve: {
		story.RouteGenerate: StageGenerate,
	},
	StageValidate: {
		story.RouteIterate: StageGenerate,
		story.RouteError:   StageDone,
	},
	StageSummarize: {},
	StageFormat:    {},
}

// defaultNext gives the fall-through transition for unrecognized route tokens.
// The default is always the safest non-destructive edge, never an undefined
// stage: an ambiguous classification ends the turn conversationally, an
// ambiguous draft or lookup goes to validation.
var defaultNext = map[Stage]Stage{
	StageClassify:  StageDone,
	StageGenerate:  StageValidate,
	StageRetrieve:  StageValidate,
	StageValidate:  StageSummarize,
	StageSummarize: StageFormat,
	StageFormat:    StageDone,
}

// Next returns the stage that follows from after it set route.
func Next(from Stage, route story.Route) Stage {
	if row, ok := transitions[from]; ok {
		if to, ok := row[route]; ok {
			return to
		}
	}
	if to, ok := defaultNext[from]; ok {
		return to
	}
	return StageDone
}

// EntryStage is where every run begins.
const EntryStage = StageClassify
