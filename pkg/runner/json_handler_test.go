package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestJSONHandler_Events(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), out)
	hooks := h.Hooks()
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{Type: domain.EventStageEnter, RunID: "r1"},
		Stage:     domain.StageOrchestration,
	})
	hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: domain.EventBase{Type: domain.EventToolCall, RunID: "r1"},
		ToolName:  "list_models",
	})

	state := domain.NewState("q").Apply(domain.Update{
		SelectedModel:  &domain.ModelInfo{ID: 1, Name: "Foundation"},
		GeneratedQuery: domain.Ptr("SELECT 1"),
		Response:       domain.Ptr("done"),
		NextStep:       domain.StepEnd,
	})
	tr := &domain.Transcript{RunID: "r1", State: state, Outcome: domain.ClassifyOutcome(state)}
	require.NoError(t, h.Output(ctx, tr, nil))

	lines := decodeLines(t, out)
	require.Len(t, lines, 3)
	assert.Equal(t, "stage_enter", lines[0]["type"])
	assert.Equal(t, "orchestration", lines[0]["stage"])
	assert.Equal(t, "tool_call", lines[1]["type"])
	assert.Equal(t, "result", lines[2]["type"])
	assert.Equal(t, "answered", lines[2]["outcome"])
	assert.Equal(t, "SELECT 1", lines[2]["query"])
	assert.Equal(t, "done", lines[2]["response"])
}

func TestJSONHandler_OutputError(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), out)

	require.NoError(t, h.Output(context.Background(), nil, errors.New("boom")))
	require.NoError(t, h.SystemOutput(context.Background(), "hint"))

	lines := decodeLines(t, out)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "system", lines[1]["type"])
	assert.Equal(t, "hint", lines[1]["message"])
}

func TestJSONHandler_Input(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"quoted\"\n{\"query\":\"object\"}\nplain text\nlast"), &bytes.Buffer{})
	ctx := context.Background()

	for _, want := range []string{"quoted", "object", "plain text", "last"} {
		got, err := h.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(ctx)
	assert.Error(t, err)
}
