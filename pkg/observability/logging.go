package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// LogHooks writes engine events to logger at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_enter", "run_id", e.RunID, "stage", e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_leave",
				"run_id", e.RunID,
				"stage", e.Stage,
				"signal", e.Signal,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "stage", e.Stage, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return",
				"run_id", e.RunID,
				"tool_name", e.ToolName,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
	}
}
