// Package memory provides in-process implementations of the storage ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// Store implements ports.TranscriptStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Transcript
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Transcript),
	}
}

// Save persists the transcript in memory.
func (s *Store) Save(ctx context.Context, transcript *domain.Transcript) error {
	copied := clone(transcript)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[transcript.RunID] = copied
	return nil
}

// Load retrieves the transcript from memory.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrTranscriptNotFound
	}

	// Copy on read so callers can't mutate the stored transcript through the pointer
	return clone(tr), nil
}

// Delete removes the transcript.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns archived run ids ordered by start time.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Transcript, 0, len(s.data))
	for _, tr := range s.data {
		all = append(all, tr)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.Before(all[j].StartedAt) })

	ids := make([]string, 0, len(all))
	for _, tr := range all {
		ids = append(ids, tr.RunID)
	}
	return ids, nil
}

func clone(tr *domain.Transcript) *domain.Transcript {
	out := *tr
	out.Stages = append([]domain.Stage(nil), tr.Stages...)
	out.State = tr.State.Snapshot()
	return &out
}
