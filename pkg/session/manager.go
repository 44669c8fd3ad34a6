package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a conversation.
const DefaultLockTTL = 2 * time.Minute

// Engine runs one query through the workflow.
type Engine interface {
	Run(ctx context.Context, query string, opts ...runtime.RunOption) (*domain.Transcript, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes runs per conversation and archives their transcripts.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	engine Engine
	store  ports.TranscriptStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager running queries on engine and archiving into store.
func NewManager(engine Engine, store ports.TranscriptStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Ask runs query for the conversation and archives the transcript.
// Runs sharing a conversation id never overlap; an empty id runs unlocked.
//
// The engine's transcript is returned even when the run failed. An archive
// failure is logged and does not fail the run.
func (m *Manager) Ask(ctx context.Context, conversationID, query string, opts ...runtime.RunOption) (*domain.Transcript, error) {
	var (
		tr     *domain.Transcript
		runErr error
	)
	run := func(ctx context.Context) error {
		if conversationID != "" {
			opts = append(opts, runtime.WithConversationID(conversationID))
		}
		tr, runErr = m.engine.Run(ctx, query, opts...)
		if tr == nil {
			return nil
		}
		// The run may have been canceled; the archive write must still happen.
		saveCtx := context.WithoutCancel(ctx)
		if err := m.store.Save(saveCtx, tr); err != nil {
			m.logger.Warn("failed to archive transcript",
				"run_id", tr.RunID,
				"err", err,
			)
		}
		return nil
	}

	if conversationID == "" {
		_ = run(ctx)
		return tr, runErr
	}
	if err := m.WithLock(ctx, conversationID, run); err != nil {
		return nil, err
	}
	return tr, runErr
}

// Transcript loads an archived run.
func (m *Manager) Transcript(ctx context.Context, runID string) (*domain.Transcript, error) {
	return m.store.Load(ctx, runID)
}

// List returns the archived run ids.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Delete removes an archived run.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.store.Delete(ctx, runID)
}

// Store returns the underlying transcript store.
func (m *Manager) Store() ports.TranscriptStore {
	return m.store
}

// WithLock executes fn while holding the lock for the conversation.
func (m *Manager) WithLock(ctx context.Context, conversationID string, fn func(context.Context) error) error {
	entry := m.acquire(conversationID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(conversationID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, conversationID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"conversation_id", conversationID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
