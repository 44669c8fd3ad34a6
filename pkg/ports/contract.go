package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTranscriptStoreContract runs a suite of tests to verify that a TranscriptStore
// implementation adheres to the defined interface contract.
func RunTranscriptStoreContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	newTranscript := func(id string) *domain.Transcript {
		state := domain.NewState("What is top revenue in 2022?").Apply(domain.Update{
			SelectedModel: &domain.ModelInfo{ID: 42, Name: "Foundation"},
			ToolCalls: []domain.ToolCallRecord{{
				Name:    "list_models",
				Args:    map[string]any{},
				Result:  "ok",
				Success: true,
			}},
			Response: domain.Ptr("done"),
			NextStep: domain.StepEnd,
		})
		return &domain.Transcript{
			RunID:     id,
			Stages:    []domain.Stage{domain.StageOrchestration, domain.StageModelSelection},
			Outcome:   domain.ClassifyOutcome(state),
			State:     state,
			StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		tr := newTranscript(runID)
		require.NoError(t, store.Save(ctx, tr), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, tr.RunID, loaded.RunID)
		assert.Equal(t, tr.Stages, loaded.Stages)
		assert.Equal(t, tr.Outcome, loaded.Outcome)
		require.NotNil(t, loaded.State)
		require.NotNil(t, loaded.State.SelectedModel)
		assert.Equal(t, 42, loaded.State.SelectedModel.ID)
		assert.Equal(t, "done", loaded.State.ResponseText())
		require.Len(t, loaded.State.ToolCalls, 1)
		assert.Equal(t, "list_models", loaded.State.ToolCalls[0].Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newTranscript(runID)))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrTranscriptNotFound, "Load after Delete should return ErrTranscriptNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		ids := []string{runID + "-1", runID + "-2"}
		for _, id := range ids {
			require.NoError(t, store.Save(ctx, newTranscript(id)))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, runs, id, fmt.Sprintf("List should contain %s", id))
		}
	})
}
