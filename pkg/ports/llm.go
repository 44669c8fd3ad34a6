package ports

import (
	"context"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// LanguageModel sends a chat conversation and returns the assistant's text.
type LanguageModel interface {
	// Complete returns the content of the first choice.
	// Implementations fail when the service errors or the response has no choices.
	Complete(ctx context.Context, messages []domain.Message, temperature float64) (string, error)
}
