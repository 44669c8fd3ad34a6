package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithConversationID sets the conversation the runs belong to.
func WithConversationID(id string) Option {
	return func(r *Runner) {
		r.ConversationID = id
	}
}

// WithStarters lists example questions when Chat begins.
func WithStarters(show bool) Option {
	return func(r *Runner) {
		r.ShowStarters = show
	}
}
