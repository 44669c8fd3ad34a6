package runtime

import "github.com/aretw0/cubeflow/pkg/domain"

// Table maps each stage's routing signals to the next stage.
type Table map[domain.Stage]map[domain.Step]domain.Stage

// Routes is the workflow graph.
// A signal missing from a stage's row routes to StageEnd.
var Routes = Table{
	domain.StageOrchestration: {
		domain.StepModelSelection:   domain.StageModelSelection,
		domain.StepMemberPrediction: domain.StageMemberPrediction,
		domain.StepError:            domain.StageErrorHandler,
		domain.StepEnd:              domain.StageEnd,
	},
	domain.StageModelSelection: {
		domain.StepMemberPrediction: domain.StageMemberPrediction,
		domain.StepError:            domain.StageErrorHandler,
		domain.StepEnd:              domain.StageEnd,
	},
	domain.StageMemberPrediction: {
		domain.StepQueryGeneration: domain.StageQueryGeneration,
		domain.StepError:           domain.StageErrorHandler,
		domain.StepEnd:             domain.StageEnd,
	},
	domain.StageQueryGeneration: {
		domain.StepResponseGeneration: domain.StageResponseGeneration,
		domain.StepError:              domain.StageErrorHandler,
		domain.StepEnd:                domain.StageEnd,
	},
	domain.StageResponseGeneration: {
		domain.StepError: domain.StageErrorHandler,
		domain.StepEnd:   domain.StageEnd,
	},
	domain.StageErrorHandler: {
		domain.StepEnd: domain.StageEnd,
	},
}

// Next returns the stage that follows stage for signal.
// ok is false when the signal is not in the stage's row; the target is then StageEnd.
func (t Table) Next(stage domain.Stage, signal domain.Step) (next domain.Stage, ok bool) {
	next, ok = t[stage][signal]
	if !ok {
		return domain.StageEnd, false
	}
	return next, true
}

// Edge is one transition of the graph.
type Edge struct {
	From   domain.Stage
	Signal domain.Step
	To     domain.Stage
}

// Edges lists the transitions in stage then signal order.
func (t Table) Edges() []Edge {
	var edges []Edge
	for _, from := range domain.Stages {
		row := t[from]
		for _, signal := range domain.Steps {
			if to, ok := row[signal]; ok {
				edges = append(edges, Edge{From: from, Signal: signal, To: to})
			}
		}
	}
	return edges
}
