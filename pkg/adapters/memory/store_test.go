package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunTranscriptStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	tr := &domain.Transcript{
		RunID:  "run-1",
		Stages: []domain.Stage{domain.StageOrchestration},
		State:  domain.NewState("q"),
	}
	require.NoError(t, store.Save(ctx, tr))

	tr.Stages[0] = domain.StageErrorHandler
	tr.State.UserQuery = "mutated"

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageOrchestration, loaded.Stages[0])
	assert.Equal(t, "q", loaded.State.UserQuery)
}
