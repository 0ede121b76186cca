package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"starlit/pkg/story"
)

func TestRouterTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  Stage
		route story.Route
		want  Stage
	}{
		{"classify to generate", StageClassify, story.RouteGenerate, StageGenerate},
		{"classify to retrieve", StageClassify, story.RouteRetrieve, StageRetrieve},
		{"classify respond ends turn", StageClassify, story.RouteRespond, StageDone},
		{"classify refuse ends turn", StageClassify, story.RouteRefuse, StageDone},
		{"classify error ends turn", StageClassify, story.RouteError, StageDone},
		{"generate always validates", StageGenerate, story.RouteCheck, StageValidate},
		{"retrieve hit validates", StageRetrieve, story.RouteCheck, StageValidate},
		{"retrieve miss generates", StageRetrieve, story.RouteGenerate, StageGenerate},
		{"validate rejection loops back", StageValidate, story.RouteIterate, StageGenerate},
		{"validate error ends the turn", StageValidate, story.RouteError, StageDone},
		{"validate approval summarizes", StageValidate, story.RouteApproved, StageSummarize},
		{"summarize to format", StageSummarize, story.RouteFormat, StageFormat},
		{"format ends turn", StageFormat, story.RouteDone, StageDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.from, tt.route))
		})
	}
}

func TestRouterUnrecognizedTokensFallThrough(t *testing.T) {
	garbage := story.Route("definitely-not-a-route")

	assert.Equal(t, StageDone, Next(StageClassify, garbage))
	assert.Equal(t, StageValidate, Next(StageGenerate, garbage))
	assert.Equal(t, StageValidate, Next(StageRetrieve, garbage))
	assert.Equal(t, StageSummarize, Next(StageValidate, garbage))
	assert.Equal(t, StageFormat, Next(StageSummarize, garbage))
	assert.Equal(t, StageDone, Next(StageFormat, garbage))

	// Unknown stages terminate rather than loop.
	assert.Equal(t, StageDone, Next(Stage("bogus"), garbage))
}

func TestEntryStage(t *testing.T) {
	assert.Equal(t, StageClassify, EntryStage)
}
