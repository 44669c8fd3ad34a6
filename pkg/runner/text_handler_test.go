package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	state := domain.NewState("q").Apply(domain.Update{Response: domain.Ptr("Hello World"), NextStep: domain.StepEnd})
	require.NoError(t, handler.Output(context.Background(), &domain.Transcript{State: state}, nil))

	assert.Contains(t, outBuf.String(), "Rendered: Hello World")
}

func TestTextHandler_OutputWithoutResponse(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf)

	require.NoError(t, handler.Output(context.Background(), &domain.Transcript{State: domain.NewState("q")}, nil))
	assert.Contains(t, outBuf.String(), "No response generated")

	outBuf.Reset()
	state := domain.NewState("q").Apply(domain.Update{Response: domain.Ptr("partial"), NextStep: domain.StepEnd})
	require.NoError(t, handler.Output(context.Background(), &domain.Transcript{State: state}, errors.New("limit")))
	assert.Contains(t, outBuf.String(), "partial")
	assert.Contains(t, outBuf.String(), "run ended with error: limit")
}

func TestTextHandler_Input(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("my user input\n"), outBuf)

	val, err := handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my user input", val)
	assert.Equal(t, "> ", outBuf.String())

	_, err = handler.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_Hooks(t *testing.T) {
	outBuf := &bytes.Buffer{}
	hooks := NewTextHandler(strings.NewReader(""), outBuf).Hooks()
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageModelSelection})
	hooks.OnStageLeave(ctx, &domain.StageEvent{
		Stage:  domain.StageModelSelection,
		Signal: domain.StepMemberPrediction,
		NewToolCalls: []domain.ToolCallRecord{
			{Name: "list_models", Args: map[string]any{}, Result: "[]", Success: true},
		},
	})
	failed := domain.NewState("q").Apply(domain.Update{Error: domain.Ptr("boom"), NextStep: domain.StepError})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageQueryGeneration, Signal: domain.StepError, Snapshot: failed})

	out := outBuf.String()
	assert.Contains(t, out, "▸ Agent: Model Selection")
	assert.Contains(t, out, "🔧 List Models")
	assert.Contains(t, out, "✅ Completed")
	assert.Contains(t, out, "❌ Error: boom")

	quiet := NewTextHandler(strings.NewReader(""), outBuf, WithQuiet(true)).Hooks()
	assert.Nil(t, quiet.OnStageEnter)
}

func TestFormatToolCall(t *testing.T) {
	long := strings.Repeat("x", MaxToolResultDisplay+10)
	out := FormatToolCall(domain.ToolCallRecord{
		Name:    "search_members",
		Args:    map[string]any{"query": "revenue"},
		Result:  long,
		Success: false,
	})

	assert.Contains(t, out, "❌ Search Members")
	assert.Contains(t, out, `"query": "revenue"`)
	assert.Contains(t, out, strings.Repeat("x", MaxToolResultDisplay)+"...\n[Result truncated]")
	assert.NotContains(t, out, strings.Repeat("x", MaxToolResultDisplay+1))
}
