package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageOrchestration})
	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageOrchestration})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "list_models", Duration: 20 * time.Millisecond})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "list_models", IsError: true})
	start := time.Now()
	hooks.OnRunEnd(ctx, &domain.Transcript{Outcome: domain.OutcomeAnswered, StartedAt: start, FinishedAt: start.Add(time.Second)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("orchestration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("list_models", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("list_models", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("answered")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ToolDuration))
}

func TestMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	second.Runs.WithLabelValues("error").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Runs.WithLabelValues("error")), "collectors are shared")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	m.StageVisits.WithLabelValues("model_selection").Inc()

	rec := httptest.NewRecorder()
	observability.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `cubeflow_stage_visits_total{stage="model_selection"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{EventBase: domain.EventBase{RunID: "r1"}, Stage: domain.StageQueryGeneration})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "validate_mql", IsError: true})

	assert.Contains(t, buf.String(), "stage_enter")
	assert.Contains(t, buf.String(), "run_id=r1")
	assert.Contains(t, buf.String(), "tool_name=validate_mql")
	assert.Contains(t, buf.String(), "is_error=true")
}
