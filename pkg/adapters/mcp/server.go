package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cubeflow"
	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/internal/presentation/graph"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI   = "cubeflow://graph"
	runsPrefix = "cubeflow://runs/"
)

// Sessions runs and archives conversations; *session.Manager implements it.
type Sessions interface {
	Ask(ctx context.Context, conversationID, query string, opts ...cubeflow.RunOption) (*domain.Transcript, error)
	Transcript(ctx context.Context, runID string) (*domain.Transcript, error)
}

// Server exposes the workflow as an MCP Server.
type Server struct {
	sessions  Sessions
	edges     []cubeflow.Edge
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, edges []cubeflow.Edge, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		edges:     edges,
		logger:    logger,
		mcpServer: server.NewMCPServer("cubeflow-mcp", strings.TrimSpace(cubeflow.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: ask_financial_question
	askTool := mcp.NewTool("ask_financial_question",
		mcp.WithDescription("Answer a financial question against the OLAP models: selects the model, "+
			"identifies the hierarchy members and generates a validated MQL query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question in natural language")),
		mcp.WithString("conversation_id", mcp.Description("Groups follow-up questions; runs of one conversation never overlap")),
		mcp.WithOutputSchema[runner.Result](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	// TOOL: get_workflow_graph
	s.mcpServer.AddTool(mcp.NewTool("get_workflow_graph",
		mcp.WithDescription("Get the workflow graph as a Mermaid flowchart, optionally highlighting a run."),
		mcp.WithString("run_id", mcp.Description("Archived run to highlight (optional)")),
	), s.handleGraph)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (runner.Result, error) {
	query, _ := args["query"].(string)
	conversationID, _ := args["conversation_id"].(string)

	clean, err := runner.SanitizeQuery(query)
	if err != nil {
		s.logger.Warn("MCP Ask: query rejected", "err", err, "size", len(query))
		return runner.Result{}, fmt.Errorf("query rejected: %w", err)
	}

	tr, err := s.sessions.Ask(ctx, conversationID, clean)
	if err != nil && (tr == nil || tr.State == nil || tr.State.Response == nil) {
		return runner.Result{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		s.logger.Error("MCP Ask: run ended with error", "err", err)
	}
	return runner.NewResult(tr, err), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var overlay *graph.GraphOverlay
	if runID := request.GetString("run_id", ""); runID != "" {
		tr, err := s.sessions.Transcript(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %q: %v", runID, err)), nil
		}
		overlay = graph.OverlayFor(tr)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(s.edges, overlay)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: cubeflow://graph
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Workflow Graph",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.edges, nil),
			},
		}, nil
	})

	// EXPOSE: cubeflow://runs/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(runsPrefix+"{id}", "Run Transcript",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readRun)
}

func (s *Server) readRun(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	runID := strings.TrimPrefix(uri, runsPrefix)
	if runID == "" || runID == uri {
		return nil, fmt.Errorf("invalid run uri %q", uri)
	}

	tr, err := s.sessions.Transcript(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptNotFound) {
			return nil, fmt.Errorf("run %q not found", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	data, err := json.Marshal(tr)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
