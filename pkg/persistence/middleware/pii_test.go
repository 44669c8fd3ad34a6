package middleware_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emailPattern = `[\w.+-]+@[\w-]+\.[\w.]+`

func TestPIIMiddleware_MasksText(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{emailPattern})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	tr := sampleTranscript("r1")
	tr.State.ToolCalls = append(tr.State.ToolCalls, domain.ToolCallRecord{
		Name:    "search_members",
		Args:    map[string]any{"query": "owner jane@example.com", "model_id": 1},
		Success: true,
	})
	require.NoError(t, store.Save(ctx, tr))

	stored, err := underlying.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Revenue for ***", stored.State.UserQuery)
	assert.Equal(t, "owner ***", stored.State.ToolCalls[0].Args["query"])
	assert.Equal(t, 1, stored.State.ToolCalls[0].Args["model_id"])

	// The caller's transcript is untouched.
	assert.Equal(t, "Revenue for jane@example.com", tr.State.UserQuery)
	assert.Equal(t, "owner jane@example.com", tr.State.ToolCalls[0].Args["query"])
}

func TestPIIMiddleware_MasksGeneratedContent(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{emailPattern})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	tr := sampleTranscript("r1")
	query := "dimension('Owner': 'jane@example.com')"
	tr.State.GeneratedQuery = &query
	tr.State.Validation = &domain.QueryValidation{Valid: false, Message: "unknown member jane@example.com"}
	tr.State.PredictedMembers = []domain.Member{
		{Name: "jane@example.com", Alias: "Jane <jane@example.com>", Dimension: "Owner"},
	}
	tr.State.ToolCalls = []domain.ToolCallRecord{
		{Name: "validate_mql", Success: false, Result: "Error: unknown member jane@example.com"},
		{Name: "search_members", Success: true, Result: json.RawMessage(`[{"name":"jane@example.com"}]`)},
		{Name: "list_models", Success: true, Result: []domain.ModelInfo{{ID: 1, Name: "Foundation Model"}}},
	}
	require.NoError(t, store.Save(ctx, tr))

	stored, err := underlying.Load(ctx, "r1")
	require.NoError(t, err)
	s := stored.State
	assert.Equal(t, "dimension('Owner': '***')", *s.GeneratedQuery)
	assert.Equal(t, "unknown member ***", s.Validation.Message)
	assert.Equal(t, domain.Member{Name: "***", Alias: "Jane <***>", Dimension: "Owner"}, s.PredictedMembers[0])
	assert.Equal(t, "Error: unknown member ***", s.ToolCalls[0].Result)
	assert.JSONEq(t, `[{"name":"***"}]`, string(s.ToolCalls[1].Result.(json.RawMessage)))
	assert.Equal(t, []domain.ModelInfo{{ID: 1, Name: "Foundation Model"}}, s.ToolCalls[2].Result)

	// The caller's transcript is untouched.
	assert.Equal(t, "dimension('Owner': 'jane@example.com')", *tr.State.GeneratedQuery)
	assert.Equal(t, "jane@example.com", tr.State.PredictedMembers[0].Name)
	assert.Equal(t, "Error: unknown member jane@example.com", tr.State.ToolCalls[0].Result)
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid redaction pattern")
}

func TestChain_RedactsBeforeSealing(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{emailPattern})
	require.NoError(t, err)
	seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, seal)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleTranscript("r1")))

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Revenue for ***", loaded.State.UserQuery)
}
