package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter EventType = "stage_enter"
	EventStageLeave EventType = "stage_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StageEvent is emitted around every stage execution.
// On leave, Next holds the routed stage and Snapshot the merged state; the snapshot
// is a private copy, observers cannot affect the run through it.
type StageEvent struct {
	EventBase
	Stage        Stage            `json:"stage"`
	Signal       Step             `json:"signal,omitempty"`
	Next         Stage            `json:"next,omitempty"`
	NewToolCalls []ToolCallRecord `json:"new_tool_calls,omitempty"`
	Diff         *StateDiff       `json:"diff,omitempty"`
	Snapshot     *State           `json:"-"`
	Duration     time.Duration    `json:"duration,omitempty"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	Stage    Stage          `json:"stage,omitempty"`
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input,omitempty"`
	Output   any            `json:"output,omitempty"`
	IsError  bool           `json:"is_error,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStageEnter func(context.Context, *StageEvent)
	OnStageLeave func(context.Context, *StageEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnRunEnd     func(context.Context, *Transcript)
}

// Merge combines two hook sets; both callbacks run, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter: chain(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave: chain(h.OnStageLeave, other.OnStageLeave),
		OnToolCall:   chain(h.OnToolCall, other.OnToolCall),
		OnToolReturn: chain(h.OnToolReturn, other.OnToolReturn),
		OnRunEnd:     chain(h.OnRunEnd, other.OnRunEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
