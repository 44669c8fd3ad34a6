package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/cubeflow/internal/presentation/graph"
	"github.com/aretw0/cubeflow/internal/runtime"
	"github.com/aretw0/cubeflow/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(runtime.Routes.Edges(), nil)

	contains := []string{
		"graph TD\n",
		`__start__(("start"))`,
		`__end__(("end"))`,
		`orchestration["Orchestration"]`,
		`error_handler{{"Error Handler"}}`,
		"__start__ --> orchestration",
		`orchestration -- "MODEL_SELECTION" --> model_selection`,
		`query_generation -- "RESPONSE_GENERATION" --> response_generation`,
		`member_prediction -. "ERROR" .-> error_handler`,
		`response_generation -. "ERROR" .-> error_handler`,
		`error_handler -- "END" --> __end__`,
	}
	for _, c := range contains {
		if !strings.Contains(out, c) {
			t.Errorf("Expected output to contain %q\nGot:\n%s", c, out)
		}
	}
	if strings.Contains(out, "Overlay Styles") {
		t.Error("Expected no overlay styles without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tr := &domain.Transcript{Stages: []domain.Stage{
		domain.StageOrchestration,
		domain.StageModelSelection,
		domain.StageErrorHandler,
	}}

	out := graph.GenerateMermaid(runtime.Routes.Edges(), graph.OverlayFor(tr))

	expected := []string{
		"classDef visited",
		"classDef current",
		"class orchestration visited;",
		"class model_selection visited;",
		"class error_handler current;",
	}
	for _, e := range expected {
		if !strings.Contains(out, e) {
			t.Errorf("Expected overlay to contain %q\nGot:\n%s", e, out)
		}
	}
	if strings.Contains(out, "class query_generation") {
		t.Error("Unvisited stage must not be styled")
	}
}

func TestOverlayFor_Empty(t *testing.T) {
	if graph.OverlayFor(nil) != nil {
		t.Error("Expected nil overlay for nil transcript")
	}
	if graph.OverlayFor(&domain.Transcript{}) != nil {
		t.Error("Expected nil overlay for a transcript without stages")
	}
}
