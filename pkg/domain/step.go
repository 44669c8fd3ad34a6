package domain

import "strings"

// Step is the routing signal a stage writes into State.NextStep.
type Step string

const (
	StepNone               Step = ""
	StepModelSelection     Step = "MODEL_SELECTION"
	StepMemberPrediction   Step = "MEMBER_PREDICTION"
	StepQueryGeneration    Step = "QUERY_GENERATION"
	StepResponseGeneration Step = "RESPONSE_GENERATION"
	StepError              Step = "ERROR"
	StepEnd                Step = "END"
)

// Steps lists the closed set of known signals (StepNone excluded).
var Steps = []Step{
	StepModelSelection,
	StepMemberPrediction,
	StepQueryGeneration,
	StepResponseGeneration,
	StepError,
	StepEnd,
}

// Known reports whether s belongs to the closed set of routing signals.
func (s Step) Known() bool {
	for _, k := range Steps {
		if s == k {
			return true
		}
	}
	return false
}

// Stage names a handler in the workflow graph.
type Stage string

const (
	StageOrchestration      Stage = "orchestration"
	StageModelSelection     Stage = "model_selection"
	StageMemberPrediction   Stage = "member_prediction"
	StageQueryGeneration    Stage = "query_generation"
	StageResponseGeneration Stage = "response_generation"
	StageErrorHandler       Stage = "error_handler"

	// StageEnd is the terminal pseudo-stage.
	StageEnd Stage = "__end__"
)

// Stages lists the executable stages in graph order.
var Stages = []Stage{
	StageOrchestration,
	StageModelSelection,
	StageMemberPrediction,
	StageQueryGeneration,
	StageResponseGeneration,
	StageErrorHandler,
}

// Title returns a human label, e.g. "Model Selection".
func (s Stage) Title() string {
	if s == StageEnd {
		return "End"
	}
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
