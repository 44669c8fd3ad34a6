package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/cubeflow/internal/stages"
	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/google/uuid"
)

// DefaultMaxSteps bounds the stage executions of one run.
const DefaultMaxSteps = 16

// Engine drives a query through the stage graph.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	llm      ports.LanguageModel
	invoker  *tools.Invoker
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	routes   Table
	handlers map[domain.Stage]stages.Handler
	maxSteps int
	budget   stages.SearchBudget
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers hooks called for every run.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithSearchBudget overrides the member search budget.
func WithSearchBudget(b stages.SearchBudget) Option {
	return func(e *Engine) {
		e.budget = b
	}
}

// WithRoutes replaces the routing table.
func WithRoutes(t Table) Option {
	return func(e *Engine) {
		e.routes = t
	}
}

// WithHandler replaces the handler of one stage.
func WithHandler(stage domain.Stage, h stages.Handler) Option {
	return func(e *Engine) {
		e.handlers[stage] = h
	}
}

// NewEngine creates an engine. It fails if the invoker lacks a tool the stages use.
func NewEngine(llm ports.LanguageModel, invoker *tools.Invoker, opts ...Option) (*Engine, error) {
	if llm == nil {
		return nil, fmt.Errorf("language model is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("tool invoker is required")
	}
	if err := invoker.Require(tools.Names...); err != nil {
		return nil, fmt.Errorf("tool table is incomplete: %w", err)
	}

	e := &Engine{
		llm:      llm,
		invoker:  invoker,
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		routes:   Routes,
		handlers: make(map[domain.Stage]stages.Handler),
		maxSteps: DefaultMaxSteps,
		budget:   stages.DefaultSearchBudget,
		now:      time.Now,
	}
	for _, stage := range domain.Stages {
		h, _ := stages.Lookup(stage)
		e.handlers[stage] = h
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Routes returns the routing table in use.
func (e *Engine) Routes() Table {
	return e.routes
}

// RunOption configures a single run.
type RunOption func(*run)

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(r *run) {
		if id != "" {
			r.id = id
		}
	}
}

// WithConversationID tags the transcript with the conversation the run belongs to.
func WithConversationID(id string) RunOption {
	return func(r *run) {
		r.conversationID = id
	}
}

// WithRunHooks adds hooks for this run only, after the engine hooks.
func WithRunHooks(hooks domain.LifecycleHooks) RunOption {
	return func(r *run) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

type run struct {
	id             string
	conversationID string
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Run executes a query from orchestration to the end of the graph.
//
// The transcript is always returned, also alongside an error: on cancellation it
// holds the partial state, and a run that ends without a response returns an
// *UnroutedSignalError.
func (e *Engine) Run(ctx context.Context, query string, opts ...RunOption) (*domain.Transcript, error) {
	r := &run{id: uuid.NewString(), hooks: e.hooks}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = e.logger.With("run_id", r.id)

	tr := &domain.Transcript{
		RunID:          r.id,
		ConversationID: r.conversationID,
		Stages:         []domain.Stage{},
		StartedAt:      e.now(),
	}
	state := domain.NewState(query)
	stage := domain.StageOrchestration
	var unrouted *UnroutedSignalError

	finish := func(outcome domain.Outcome, err error) (*domain.Transcript, error) {
		tr.State = state.Snapshot()
		tr.Outcome = outcome
		tr.FinishedAt = e.now()
		if r.hooks.OnRunEnd != nil {
			r.hooks.OnRunEnd(ctx, tr)
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		r.logger.Log(ctx, level, "run finished",
			"outcome", outcome,
			"stages", len(tr.Stages),
			"tool_calls", len(state.ToolCalls),
			"duration", tr.FinishedAt.Sub(tr.StartedAt),
		)
		return tr, err
	}

	r.logger.InfoContext(ctx, "run started", "query_len", len(query))

	for stage != domain.StageEnd {
		if err := ctx.Err(); err != nil {
			return finish(domain.OutcomeCanceled, err)
		}
		if len(tr.Stages) >= e.maxSteps {
			return finish(domain.ClassifyOutcome(state), fmt.Errorf("%w: %d", ErrMaxStepsExceeded, e.maxSteps))
		}

		handler, ok := e.handlers[stage]
		if !ok || handler == nil {
			return finish(domain.OutcomeError, fmt.Errorf("no handler for stage %q", stage))
		}

		next, target, lost := e.step(ctx, r, stage, handler, state)
		tr.Stages = append(tr.Stages, stage)
		if lost != nil {
			unrouted = lost
		}
		state = next
		stage = target
	}

	if err := ctx.Err(); err != nil && !state.Done() {
		return finish(domain.OutcomeCanceled, err)
	}
	if !state.Done() {
		if unrouted == nil {
			last := tr.Stages[len(tr.Stages)-1]
			unrouted = &UnroutedSignalError{Stage: last, Signal: state.NextStep}
		}
		return finish(domain.OutcomeUnrouted, unrouted)
	}
	return finish(domain.ClassifyOutcome(state), nil)
}

// step executes one stage, merges its update and routes.
func (e *Engine) step(ctx context.Context, r *run, stage domain.Stage, h stages.Handler, state *domain.State) (*domain.State, domain.Stage, *UnroutedSignalError) {
	log := r.logger.With("stage", stage)
	e.emitStageEnter(ctx, r, stage)
	start := e.now()

	deps := stages.Deps{
		LLM:    e.llm,
		Tools:  &stageTools{engine: e, run: r, stage: stage},
		Logger: log,
		Budget: e.budget,
	}
	u := h(ctx, deps, state.Snapshot())

	if v := u.Violation(); v != "" {
		log.Warn("stage update repaired", "violation", v)
		u, _ = u.Normalize(stage)
	}
	next := state.Apply(u)

	target, known := e.routes.Next(stage, next.NextStep)
	var unrouted *UnroutedSignalError
	if !known {
		log.Warn("unrecognized routing signal, ending run", "signal", next.NextStep)
		unrouted = &UnroutedSignalError{Stage: stage, Signal: next.NextStep}
	}
	if next.Done() && target != domain.StageEnd {
		log.Warn("response already set, ending run", "signal", next.NextStep, "target", target)
		target = domain.StageEnd
	}

	e.emitStageLeave(ctx, r, stage, state, next, target, e.now().Sub(start))
	log.DebugContext(ctx, "stage executed", "signal", next.NextStep, "next", target)
	return next, target, unrouted
}

func (e *Engine) emitStageEnter(ctx context.Context, r *run, stage domain.Stage) {
	if r.hooks.OnStageEnter == nil {
		return
	}
	r.hooks.OnStageEnter(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventStageEnter, RunID: r.id},
		Stage:     stage,
	})
}

func (e *Engine) emitStageLeave(ctx context.Context, r *run, stage domain.Stage, before, after *domain.State, target domain.Stage, d time.Duration) {
	if r.hooks.OnStageLeave == nil {
		return
	}
	var calls []domain.ToolCallRecord
	for _, tc := range after.ToolCalls[len(before.ToolCalls):] {
		calls = append(calls, tc.Clone())
	}
	r.hooks.OnStageLeave(ctx, &domain.StageEvent{
		EventBase:    domain.EventBase{Timestamp: e.now(), Type: domain.EventStageLeave, RunID: r.id},
		Stage:        stage,
		Signal:       after.NextStep,
		Next:         target,
		NewToolCalls: calls,
		Diff:         domain.Diff(before, after.Snapshot()),
		Snapshot:     after.Snapshot(),
		Duration:     d,
	})
}

// stageTools reports tool events for the stage that makes the calls.
type stageTools struct {
	engine *Engine
	run    *run
	stage  domain.Stage
}

func (t *stageTools) Invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord {
	e, r := t.engine, t.run
	if r.hooks.OnToolCall != nil {
		r.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventToolCall, RunID: r.id},
			Stage:     t.stage,
			ToolName:  name,
			Input:     domain.ToolCallRecord{Args: args}.Clone().Args,
		})
	}

	start := e.now()
	rec := e.invoker.Invoke(ctx, name, args)

	if r.hooks.OnToolReturn != nil {
		view := rec.Clone()
		r.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventToolReturn, RunID: r.id},
			Stage:     t.stage,
			ToolName:  name,
			Input:     view.Args,
			Output:    view.Result,
			IsError:   !rec.Success,
			Duration:  e.now().Sub(start),
		})
	}
	return rec
}
