package ports

import (
	"context"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// TranscriptStore archives finished runs.
// Transcripts are an audit record; they are never loaded back into the engine.
type TranscriptStore interface {
	// Save persists the transcript under its RunID.
	Save(ctx context.Context, transcript *domain.Transcript) error

	// Load retrieves a transcript.
	// Returns domain.ErrTranscriptNotFound if the run is unknown.
	Load(ctx context.Context, runID string) (*domain.Transcript, error)

	// List returns the IDs of all archived runs.
	List(ctx context.Context) ([]string, error)

	// Delete removes a transcript. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error
}
