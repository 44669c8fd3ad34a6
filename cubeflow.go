package cubeflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/internal/stages"
	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
)

// RunOption configures a single run.
type RunOption = runtime.RunOption

// Edge is one transition of the workflow graph.
type Edge = runtime.Edge

var (
	// WithRunID overrides the generated run id.
	WithRunID = runtime.WithRunID
	// WithConversationID tags the run's transcript with a conversation.
	WithConversationID = runtime.WithConversationID
	// WithRunHooks adds observers for one run only.
	WithRunHooks = runtime.WithRunHooks
)

// Engine is the high-level entry point for the cubeflow library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime *runtime.Engine
	invoker *tools.Invoker

	llm         ports.LanguageModel
	data        ports.DataService
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	toolTimeout time.Duration
	maxSteps    int
	budget      stages.SearchBudget
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLanguageModel sets the completion backend. Required.
func WithLanguageModel(llm ports.LanguageModel) Option {
	return func(e *Engine) {
		e.llm = llm
	}
}

// WithDataService sets the cube backend the tools call. Required.
func WithDataService(ds ports.DataService) Option {
	return func(e *Engine) {
		e.data = ds
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithToolTimeout bounds each tool call; zero disables the bound.
func WithToolTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.toolTimeout = d
	}
}

// WithMaxSteps caps the stage executions of one run.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithSearchBudget limits member-verification calls per dimension and the
// depth of the hierarchy walk.
func WithSearchBudget(maxCalls, maxDepth int) Option {
	return func(e *Engine) {
		e.budget = stages.SearchBudget{MaxCalls: maxCalls, MaxDepth: maxDepth}
	}
}

// New assembles the workflow from its collaborators.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   logging.NewNop(),
		maxSteps: runtime.DefaultMaxSteps,
		budget:   stages.DefaultSearchBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.data == nil {
		return nil, fmt.Errorf("data service is required")
	}

	toolOpts := []tools.Option{tools.WithLogger(e.logger)}
	if e.toolTimeout > 0 {
		toolOpts = append(toolOpts, tools.WithTimeout(e.toolTimeout))
	}
	e.invoker = tools.NewInvoker(e.data, toolOpts...)

	rt, err := runtime.NewEngine(e.llm, e.invoker,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMaxSteps(e.maxSteps),
		runtime.WithSearchBudget(e.budget),
	)
	if err != nil {
		return nil, err
	}
	e.runtime = rt
	return e, nil
}

// Run answers one question. See runtime.Engine.Run for the error contract:
// the transcript is returned even when err is non-nil.
func (e *Engine) Run(ctx context.Context, query string, opts ...RunOption) (*domain.Transcript, error) {
	return e.runtime.Run(ctx, query, opts...)
}

// Edges lists the transitions of the workflow graph.
func (e *Engine) Edges() []Edge {
	return e.runtime.Routes().Edges()
}

// Tools describes the tools available to the stages.
func (e *Engine) Tools() []domain.Tool {
	return e.invoker.Tools()
}

// WorkflowEdges lists the transitions of the built-in workflow without building an engine.
func WorkflowEdges() []Edge {
	return runtime.Routes.Edges()
}
