package domain

import "errors"

// ErrTranscriptNotFound is returned when a run transcript cannot be found in the store.
var ErrTranscriptNotFound = errors.New("transcript not found")

// ErrEmptyQuery is returned when a run is started without a user query.
var ErrEmptyQuery = errors.New("empty user query")
