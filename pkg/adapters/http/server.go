package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/cubeflow"
	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/internal/presentation/graph"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Sessions runs and archives conversations; *session.Manager implements it.
type Sessions interface {
	Ask(ctx context.Context, conversationID, query string, opts ...cubeflow.RunOption) (*domain.Transcript, error)
	Transcript(ctx context.Context, runID string) (*domain.Transcript, error)
	List(ctx context.Context) ([]string, error)
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Server serves the workflow over HTTP.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager
	Edges    []cubeflow.Edge
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithEdges sets the graph served by GET /graph.
func WithEdges(edges []cubeflow.Edge) Option {
	return func(s *Server) {
		s.Edges = edges
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the sessions.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	server := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/ask", server.Ask)
	r.Get("/ask/stream", server.AskStream)
	r.Get("/events", server.SubscribeEvents)
	r.Get("/runs", server.ListRuns)
	r.Get("/runs/{id}", server.GetRun)
	r.Get("/graph", server.GetGraph)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.Metrics != nil {
		r.Handle("/metrics", server.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>cubeflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// Ask handles the POST /ask request.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	if err := validateRequest(r, "/ask", nil); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		s.Logger.Warn("Ask: invalid request", "err", err)
		return
	}

	var body AskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		s.Logger.Warn("Ask: invalid request body", "err", err)
		return
	}

	query, err := runner.SanitizeQuery(body.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid query: %v", err))
		s.Logger.Warn("Ask: query rejected", "err", err, "size", len(body.Query))
		return
	}

	tr, err := s.Sessions.Ask(r.Context(), body.ConversationID, query, cubeflow.WithRunHooks(s.broadcastHooks(body.ConversationID)))
	status := http.StatusOK
	if err != nil {
		s.Logger.Error("Ask: run failed", "err", err)
		if tr == nil || tr.State == nil || tr.State.Response == nil {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, runner.NewResult(tr, err), s.Logger)
}

// AskStream handles the GET /ask/stream request (SSE).
// Every engine event is sent as it happens; the final "done" event carries the result.
func (s *Server) AskStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	q := r.URL.Query()
	query, err := runner.SanitizeQuery(q.Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid query: %v", err))
		return
	}
	conversationID := q.Get("conversation_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var mu sync.Mutex
	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	hooks := domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) { send(string(e.Type), e) },
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) { send(string(e.Type), e) },
		OnToolCall:   func(_ context.Context, e *domain.ToolEvent) { send(string(e.Type), e) },
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) { send(string(e.Type), e) },
	}.Merge(s.broadcastHooks(conversationID))

	tr, err := s.Sessions.Ask(r.Context(), conversationID, query, cubeflow.WithRunHooks(hooks))
	if err != nil {
		s.Logger.Warn("AskStream: run failed", "err", err)
	}
	if r.Context().Err() != nil {
		return
	}
	send("done", runner.NewResult(tr, err))
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("List error: %v", err))
		s.Logger.Error("List failed", "err", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids, s.Logger)
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	tr, err := s.Sessions.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Load error: %v", err))
		s.Logger.Error("Load failed", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, tr, s.Logger)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		tr, err := s.Sessions.Transcript(r.Context(), runID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		overlay = graph.OverlayFor(tr)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Edges, overlay))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.Logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "cubeflow-http",
		"version":     strings.TrimSpace(cubeflow.Version),
		"api_version": apiVersion,
	}, s.Logger)
}

// broadcastHooks publishes each stage's diff to the conversation's subscribers.
func (s *Server) broadcastHooks(conversationID string) domain.LifecycleHooks {
	if conversationID == "" {
		return domain.LifecycleHooks{}
	}
	return domain.LifecycleHooks{
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			if e.Diff == nil || e.Diff.IsEmpty() {
				return
			}
			if data, err := json.Marshal(e.Diff); err == nil {
				s.Streams.Broadcast(conversationID, string(data))
			}
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
