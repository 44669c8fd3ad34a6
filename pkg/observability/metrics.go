package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the workflow collectors.
type Metrics struct {
	StageVisits  *prometheus.CounterVec
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubeflow_stage_visits_total",
				Help: "Total number of stage executions",
			},
			[]string{"stage"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubeflow_tool_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"tool", "success"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cubeflow_tool_duration_seconds",
				Help:    "Duration of tool executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubeflow_runs_total",
				Help: "Total number of finished runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cubeflow_run_duration_seconds",
				Help:    "Wall time of a run",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
		),
	}

	var err error
	m.StageVisits, err = register(reg, m.StageVisits)
	if err != nil {
		return nil, err
	}
	m.ToolCalls, err = register(reg, m.ToolCalls)
	if err != nil {
		return nil, err
	}
	m.ToolDuration, err = register(reg, m.ToolDuration)
	if err != nil {
		return nil, err
	}
	m.Runs, err = register(reg, m.Runs)
	if err != nil {
		return nil, err
	}
	m.RunDuration, err = register(reg, m.RunDuration)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks records stage visits, tool calls and run outcomes.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.ToolCalls.WithLabelValues(e.ToolName, strconv.FormatBool(!e.IsError)).Inc()
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
		OnRunEnd: func(_ context.Context, tr *domain.Transcript) {
			m.Runs.WithLabelValues(string(tr.Outcome)).Inc()
			if !tr.FinishedAt.IsZero() {
				m.RunDuration.Observe(tr.FinishedAt.Sub(tr.StartedAt).Seconds())
			}
		},
	}
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
