package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/cubeflow/internal/testutils"
	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoker_Success(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	rec := inv.Invoke(context.Background(), tools.ListModels, nil)

	assert.True(t, rec.Success)
	assert.Equal(t, tools.ListModels, rec.Name)
	assert.NotNil(t, rec.Args)
	models, ok := rec.Result.([]domain.ModelInfo)
	require.True(t, ok)
	assert.Len(t, models, 1)
}

func TestInvoker_WeaklyTypedArgs(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	// JSON numbers arrive as float64, ids sometimes as strings
	rec := inv.Invoke(context.Background(), tools.GetChildrenOfMember, map[string]any{
		"model_id":         float64(testutils.FoundationModelID),
		"dimension_number": "1",
		"member_id":        "a2",
	})

	require.True(t, rec.Success, rec.Result)
	children, ok := rec.Result.([]domain.HierarchyMember)
	require.True(t, ok)
	require.Len(t, children, 1)
	assert.Equal(t, "Net Income", children[0].Name)
}

func TestInvoker_FailureIsRecorded(t *testing.T) {
	ds := testutils.NewFoundation()
	ds.Errors = map[string]error{"ListModels": errors.New("500 Internal Server Error")}
	inv := tools.NewInvoker(ds)

	rec := inv.Invoke(context.Background(), tools.ListModels, map[string]any{})

	assert.False(t, rec.Success)
	assert.Equal(t, "Error: 500 Internal Server Error", rec.Result)
}

func TestInvoker_UnknownTool(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	rec := inv.Invoke(context.Background(), "drop_tables", map[string]any{})

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Result, "unknown tool")
}

func TestInvoker_Require(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())
	assert.NoError(t, inv.Require(tools.Names...))

	empty := tools.NewInvoker(nil, tools.WithRegistry(tools.NewRegistry()))
	err := empty.Require(tools.ListModels, tools.ValidateMQL)
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
	assert.Contains(t, err.Error(), tools.ValidateMQL)
}

func TestInvoker_MissingMemberID(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	rec := inv.Invoke(context.Background(), tools.GetChildrenOfMember, map[string]any{
		"model_id":         1,
		"dimension_number": 1,
	})

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Result, "member_id is required")
}

func TestInvoker_Timeout(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(domain.Tool{Name: "slow"}, func(ctx context.Context, _ map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	inv := tools.NewInvoker(nil, tools.WithRegistry(reg), tools.WithTimeout(10*time.Millisecond))

	rec := inv.Invoke(context.Background(), "slow", nil)

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Result, context.DeadlineExceeded.Error())
}

func TestInvoker_PanicIsRecorded(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(domain.Tool{Name: "broken"}, func(context.Context, map[string]any) (any, error) {
		panic("boom")
	})
	inv := tools.NewInvoker(nil, tools.WithRegistry(reg))

	rec := inv.Invoke(context.Background(), "broken", nil)

	assert.False(t, rec.Success)
	assert.Equal(t, "Error: tool panicked: boom", rec.Result)
}

func TestInvoker_SearchReturnsRawPayload(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	rec := inv.Invoke(context.Background(), tools.SearchMembers, map[string]any{
		"model_id":     testutils.FoundationModelID,
		"dimension_id": testutils.AccountDimID,
		"query":        "revenue",
	})

	require.True(t, rec.Success)
	raw, ok := rec.Result.(json.RawMessage)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"Revenue"`)
}

func TestInvoker_Tools(t *testing.T) {
	inv := tools.NewInvoker(testutils.NewFoundation())

	var names []string
	for _, tool := range inv.Tools() {
		assert.NotEmpty(t, tool.Description, tool.Name)
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, tools.Names, names)
}
