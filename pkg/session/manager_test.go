package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers every query and records overlapping runs.
type fakeEngine struct {
	mu      sync.Mutex
	n       int
	active  int32
	overlap int32
	delay   time.Duration
	err     error
}

func (f *fakeEngine) Run(ctx context.Context, query string, opts ...runtime.RunOption) (*domain.Transcript, error) {
	if atomic.AddInt32(&f.active, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.active, -1)
	time.Sleep(f.delay)

	f.mu.Lock()
	f.n++
	id := fmt.Sprintf("run-%d", f.n)
	f.mu.Unlock()

	state := domain.NewState(query).Apply(domain.Update{Response: domain.Ptr("ok"), NextStep: domain.StepEnd})
	return &domain.Transcript{RunID: id, State: state, Outcome: domain.ClassifyOutcome(state)}, f.err
}

type failingStore struct{ ports.TranscriptStore }

func (failingStore) Save(context.Context, *domain.Transcript) error { return errors.New("disk full") }

type countingLocker struct {
	locks, unlocks int32
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	atomic.AddInt32(&l.locks, 1)
	return func(context.Context) error {
		atomic.AddInt32(&l.unlocks, 1)
		return nil
	}, nil
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&fakeEngine{}, memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := mgr.Ask(ctx, fmt.Sprintf("conv-%d", i), "q")
		require.NoError(t, err)
	}

	assert.Empty(t, mgr.locks, "locks must be released once no run holds them")
}

func TestManager_SerializesConversation(t *testing.T) {
	engine := &fakeEngine{delay: 5 * time.Millisecond}
	mgr := NewManager(engine, memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Ask(ctx, "same", "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&engine.overlap), "runs of one conversation overlapped")
	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 10)
}

func TestManager_ArchivesFailedRun(t *testing.T) {
	engine := &fakeEngine{err: errors.New("boom")}
	mgr := NewManager(engine, memory.NewStore())
	ctx := context.Background()

	tr, err := mgr.Ask(ctx, "", "q")
	assert.EqualError(t, err, "boom")
	require.NotNil(t, tr)

	loaded, err := mgr.Transcript(ctx, tr.RunID)
	require.NoError(t, err)
	assert.Equal(t, "q", loaded.State.UserQuery)

	require.NoError(t, mgr.Delete(ctx, tr.RunID))
	_, err = mgr.Transcript(ctx, tr.RunID)
	assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)
}

func TestManager_ArchiveFailureDoesNotFailRun(t *testing.T) {
	mgr := NewManager(&fakeEngine{}, failingStore{memory.NewStore()})

	tr, err := mgr.Ask(context.Background(), "c", "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", tr.State.ResponseText())
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	mgr := NewManager(&fakeEngine{}, memory.NewStore(), WithLocker(locker), WithLockTTL(time.Second))
	ctx := context.Background()

	_, err := mgr.Ask(ctx, "c", "q")
	require.NoError(t, err)
	_, err = mgr.Ask(ctx, "", "q")
	require.NoError(t, err)

	assert.EqualValues(t, 1, locker.locks, "only conversations are locked")
	assert.EqualValues(t, 1, locker.unlocks)
	assert.Equal(t, time.Second, mgr.lockTTL)
}
