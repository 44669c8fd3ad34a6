package stages

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
)

// ToolRunner executes a named tool and returns its audit record.
type ToolRunner interface {
	Invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord
}

// Deps are the capabilities a stage may use.
type Deps struct {
	LLM    ports.LanguageModel
	Tools  ToolRunner
	Logger *slog.Logger
	Budget SearchBudget
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d.Logger
}

func (d Deps) budget() SearchBudget {
	if d.Budget.MaxCalls <= 0 || d.Budget.MaxDepth <= 0 {
		return DefaultSearchBudget
	}
	return d.Budget
}

// Handler executes one stage.
type Handler func(ctx context.Context, deps Deps, state *domain.State) domain.Update

var handlers = map[domain.Stage]Handler{
	domain.StageOrchestration:      Orchestrate,
	domain.StageModelSelection:     SelectModel,
	domain.StageMemberPrediction:   PredictMembers,
	domain.StageQueryGeneration:    GenerateQuery,
	domain.StageResponseGeneration: GenerateResponse,
	domain.StageErrorHandler:       HandleError,
}

// Lookup returns the handler registered for a stage.
func Lookup(stage domain.Stage) (Handler, bool) {
	h, ok := handlers[stage]
	return h, ok
}
