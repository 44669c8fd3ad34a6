package runtime_test

import (
	"testing"

	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestRoutes_Totality(t *testing.T) {
	signals := append([]domain.Step{domain.StepNone, "MQL_GENERATION", "garbage"}, domain.Steps...)
	valid := map[domain.Stage]bool{domain.StageEnd: true}
	for _, s := range domain.Stages {
		valid[s] = true
	}

	for _, stage := range domain.Stages {
		for _, signal := range signals {
			next, ok := runtime.Routes.Next(stage, signal)
			assert.True(t, valid[next], "%s/%s routed to %q", stage, signal, next)
			if !signal.Known() {
				assert.False(t, ok, "%s/%s should be unrecognized", stage, signal)
				assert.Equal(t, domain.StageEnd, next)
			}
		}
	}
}

func TestRoutes_Table(t *testing.T) {
	tests := []struct {
		stage  domain.Stage
		signal domain.Step
		want   domain.Stage
		ok     bool
	}{
		{domain.StageOrchestration, domain.StepModelSelection, domain.StageModelSelection, true},
		{domain.StageOrchestration, domain.StepMemberPrediction, domain.StageMemberPrediction, true},
		{domain.StageOrchestration, domain.StepError, domain.StageErrorHandler, true},
		{domain.StageOrchestration, domain.StepQueryGeneration, domain.StageEnd, false},
		{domain.StageModelSelection, domain.StepMemberPrediction, domain.StageMemberPrediction, true},
		{domain.StageModelSelection, domain.StepEnd, domain.StageEnd, true},
		{domain.StageModelSelection, domain.StepModelSelection, domain.StageEnd, false},
		{domain.StageMemberPrediction, domain.StepQueryGeneration, domain.StageQueryGeneration, true},
		{domain.StageQueryGeneration, domain.StepResponseGeneration, domain.StageResponseGeneration, true},
		{domain.StageQueryGeneration, domain.StepError, domain.StageErrorHandler, true},
		{domain.StageResponseGeneration, domain.StepEnd, domain.StageEnd, true},
		{domain.StageResponseGeneration, domain.StepError, domain.StageErrorHandler, true},
		{domain.StageErrorHandler, domain.StepEnd, domain.StageEnd, true},
		{domain.StageErrorHandler, domain.StepError, domain.StageEnd, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage)+"/"+string(tt.signal), func(t *testing.T) {
			got, ok := runtime.Routes.Next(tt.stage, tt.signal)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRoutes_Edges(t *testing.T) {
	edges := runtime.Routes.Edges()
	assert.NotEmpty(t, edges)
	assert.Equal(t, runtime.Edge{
		From:   domain.StageOrchestration,
		Signal: domain.StepModelSelection,
		To:     domain.StageModelSelection,
	}, edges[0])
	for _, e := range edges {
		assert.NotEqual(t, domain.StageEnd, e.From)
	}
}
