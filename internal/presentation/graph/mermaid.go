package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/domain"
)

const (
	startID = "__start__"
	endID   = "__end__"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedStages []domain.Stage
	CurrentStage  domain.Stage
}

// OverlayFor builds the overlay of a finished or running transcript.
func OverlayFor(tr *domain.Transcript) *GraphOverlay {
	if tr == nil || len(tr.Stages) == 0 {
		return nil
	}
	return &GraphOverlay{
		VisitedStages: tr.Stages,
		CurrentStage:  tr.Stages[len(tr.Stages)-1],
	}
}

// GenerateMermaid produces a Mermaid flowchart of the routing edges.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Error handler: {{Hexagon}}
// - Default: [Rectangle]
// Error edges are dotted; END edges are labeled with their signal.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(edges []runtime.Edge, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", startID))
	for _, stage := range domain.Stages {
		opener, closer := "[", "]"
		if stage == domain.StageErrorHandler {
			opener, closer = "{{", "}}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(string(stage)), opener, stage.Title(), closer))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", endID))
	sb.WriteString(fmt.Sprintf("    %s --> %s\n", startID, sanitizeMermaidID(string(domain.StageOrchestration))))

	for _, e := range edges {
		from := sanitizeMermaidID(string(e.From))
		to := sanitizeMermaidID(string(e.To))
		arrow := fmt.Sprintf("-- \"%s\" -->", e.Signal)
		if e.Signal == domain.StepError {
			arrow = fmt.Sprintf("-. \"%s\" .->", e.Signal)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, stage := range overlay.VisitedStages {
			safeID := sanitizeMermaidID(string(stage))
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentStage != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentStage))))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
