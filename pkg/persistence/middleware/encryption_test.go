package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/persistence/middleware"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.TranscriptStore) ports.TranscriptStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func sampleTranscript(runID string) *domain.Transcript {
	s := domain.NewState("Revenue for jane@example.com")
	resp := "Generated MQL Query"
	s.Response = &resp
	return &domain.Transcript{
		RunID:          runID,
		ConversationID: "c1",
		Stages:         []domain.Stage{domain.StageOrchestration, domain.StageResponseGeneration},
		Outcome:        domain.OutcomeAnswered,
		State:          s,
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, sampleTranscript("r1")))

	// The underlying store only sees the envelope.
	stored, err := underlying.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, stored.State)
	assert.Empty(t, stored.Stages)
	assert.NotEmpty(t, stored.Sealed)
	assert.Equal(t, "c1", stored.ConversationID)
	assert.Equal(t, domain.OutcomeAnswered, stored.Outcome)

	loaded, err := secure.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Revenue for jane@example.com", loaded.State.UserQuery)
	assert.Len(t, loaded.Stages, 2)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	require.NoError(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying).Save(ctx, sampleTranscript("r1")))

	rotated := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := rotated.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", loaded.RunID)

	_, err = encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey}, underlying).Load(ctx, "r1")
	assert.ErrorContains(t, err, "failed to decrypt")
}

func TestEncryptionMiddleware_RejectsPlainTranscript(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, sampleTranscript("r1")))

	_, err := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying).Load(ctx, "r1")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunTranscriptStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}
