package runner

import (
	"context"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Hooks returns the callbacks that present the progress of a run.
	Hooks() domain.LifecycleHooks

	// Output presents the outcome of a run. tr may be nil when err is set.
	Output(ctx context.Context, tr *domain.Transcript, err error) error

	// Input reads the next user message.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. validation errors, hints).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
