package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/domain"
)

// Starters are example questions offered when a chat starts.
var Starters = []string{
	"What is top revenue across all departments in 2022 in my foundation model?",
	"What is top revenue across all departments in 2022?",
	"Show me the net income for Q4 2023",
	"What are the total assets for the current year?",
}

// Asker runs a query within a conversation; *session.Manager implements it.
type Asker interface {
	Ask(ctx context.Context, conversationID, query string, opts ...runtime.RunOption) (*domain.Transcript, error)
}

// Runner handles the interaction loop using the provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// ConversationID groups the runs of one chat.
	ConversationID string

	// ShowStarters lists Starters when Chat begins.
	ShowStarters bool

	asker Asker
}

// NewRunner creates a Runner that sends queries to asker.
func NewRunner(asker Asker, opts ...Option) *Runner {
	r := &Runner{
		asker:  asker,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Ask sanitizes query, runs it and presents the outcome.
// Input errors are returned without running anything.
func (r *Runner) Ask(ctx context.Context, query string) (*domain.Transcript, error) {
	clean, err := SanitizeQuery(query)
	if err != nil {
		return nil, err
	}

	tr, runErr := r.asker.Ask(ctx, r.ConversationID, clean, runtime.WithRunHooks(r.Handler.Hooks()))
	if outErr := r.Handler.Output(ctx, tr, runErr); outErr != nil {
		return tr, errors.Join(runErr, fmt.Errorf("output error: %w", outErr))
	}
	return tr, runErr
}

// Chat reads questions until EOF, "exit" or "quit", or ctx is done.
//
// When a run asks the user to pick a model, the next message is treated as
// the reply and sent together with the question that prompted it.
func (r *Runner) Chat(ctx context.Context) error {
	if r.ShowStarters {
		var sb strings.Builder
		sb.WriteString("Try asking:")
		for _, s := range Starters {
			sb.WriteString("\n  - " + s)
		}
		_ = r.Handler.SystemOutput(ctx, sb.String())
	}

	pending := ""
	for {
		line, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		query := line
		if pending != "" {
			query = FollowUp(pending, line)
		}

		tr, err := r.Ask(ctx, query)
		if IsInputError(err) {
			_ = r.Handler.SystemOutput(ctx, fmt.Sprintf("Error: %v. Please try again.", err))
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.Logger.Debug("run failed", "err", err)
		}

		pending = ""
		if tr != nil && tr.Outcome == domain.OutcomeClarification {
			pending = tr.State.UserQuery
		}
	}
}

// FollowUp combines a question that needed clarification with the user's reply.
func FollowUp(question, reply string) string {
	return fmt.Sprintf("%s\n\nClarification: %s", question, reply)
}
