package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// Rule answers a completion whose system prompt contains Contains.
type Rule struct {
	Contains string
	Reply    string
	Err      error
}

// FakeLLM is a scripted ports.LanguageModel.
// The first rule whose Contains appears in the system message wins; an empty
// Contains matches everything.
type FakeLLM struct {
	mu    sync.Mutex
	rules []Rule
	calls [][]domain.Message
}

// NewFakeLLM creates a scripted language model.
func NewFakeLLM(rules ...Rule) *FakeLLM {
	return &FakeLLM{rules: rules}
}

// Complete implements ports.LanguageModel.
func (f *FakeLLM) Complete(ctx context.Context, messages []domain.Message, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)

	system := ""
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = m.Content
			break
		}
	}
	for _, r := range f.rules {
		if strings.Contains(system, r.Contains) {
			return r.Reply, r.Err
		}
	}
	return "", fmt.Errorf("fake llm: no rule for prompt %.40q", system)
}

// Calls returns the number of completions requested.
func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Prompt markers matching the stage system prompts.
const (
	OrchestrationPrompt = "route financial questions"
	SelectionPrompt     = "SELECTED_MODEL_ID"
	PredictionPrompt    = "Extract the hierarchy members"
	QueryPrompt         = "Vena MQL"
)

// FakeDataService is an in-memory ports.DataService.
type FakeDataService struct {
	mu sync.Mutex

	Models  []domain.ModelInfo
	Details map[int]*domain.ModelDetails
	// Children is keyed by "model/dimension/member"; member "" is the root.
	Hierarchy map[string][]domain.HierarchyMember
	// Search is keyed by "model/dimensionID/lowercased query".
	Search map[string]json.RawMessage
	// Invalid maps a query to the message the service rejects it with.
	Invalid map[string]string
	// Errors forces an operation ("ListModels", "GetModel", ...) to fail.
	Errors map[string]error

	calls []string
}

func (f *FakeDataService) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.Errors[op]
}

// Calls lists the operations invoked so far.
func (f *FakeDataService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeDataService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	if err := f.record("ListModels"); err != nil {
		return nil, err
	}
	return append([]domain.ModelInfo(nil), f.Models...), nil
}

func (f *FakeDataService) GetModel(ctx context.Context, modelID int, name string) (*domain.ModelDetails, error) {
	if err := f.record("GetModel"); err != nil {
		return nil, err
	}
	d, ok := f.Details[modelID]
	if !ok {
		return nil, fmt.Errorf("model %d not found", modelID)
	}
	out := *d
	out.Name = name
	return &out, nil
}

func (f *FakeDataService) Children(ctx context.Context, modelID, dimensionNumber int, memberID string) ([]domain.HierarchyMember, error) {
	if err := f.record("Children"); err != nil {
		return nil, err
	}
	return f.Hierarchy[HierarchyKey(modelID, dimensionNumber, memberID)], nil
}

func (f *FakeDataService) SearchMembers(ctx context.Context, modelID, dimensionID int, query string) (json.RawMessage, error) {
	if err := f.record("SearchMembers"); err != nil {
		return nil, err
	}
	if raw, ok := f.Search[SearchKey(modelID, dimensionID, query)]; ok {
		return raw, nil
	}
	return json.RawMessage(`[]`), nil
}

func (f *FakeDataService) ValidateQuery(ctx context.Context, modelID int, query string) (domain.QueryValidation, error) {
	if err := f.record("ValidateQuery"); err != nil {
		return domain.QueryValidation{}, err
	}
	if msg, ok := f.Invalid[query]; ok {
		return domain.QueryValidation{}, errors.New(msg)
	}
	return domain.QueryValidation{Valid: true}, nil
}

// HierarchyKey builds a FakeDataService.Hierarchy key.
func HierarchyKey(modelID, dimensionNumber int, memberID string) string {
	return fmt.Sprintf("%d/%d/%s", modelID, dimensionNumber, memberID)
}

// SearchKey builds a FakeDataService.Search key.
func SearchKey(modelID, dimensionID int, query string) string {
	return fmt.Sprintf("%d/%d/%s", modelID, dimensionID, strings.ToLower(query))
}

// Foundation IDs used by NewFoundation.
const (
	FoundationModelID = 1
	AccountDimID      = 101
	PeriodDimID       = 102
	DepartmentDimID   = 103
)

// NewFoundation returns a data service with a single "Foundation Model" holding
// Account, Period and Department dimensions. "Revenue" and "2022" are findable by
// search; "Net Income" only by walking the Account hierarchy.
func NewFoundation() *FakeDataService {
	return &FakeDataService{
		Models: []domain.ModelInfo{
			{ID: FoundationModelID, Name: "Foundation Model", Description: "Default financial model"},
		},
		Details: map[int]*domain.ModelDetails{
			FoundationModelID: {
				ID: FoundationModelID,
				Dimensions: []domain.Dimension{
					{ID: AccountDimID, Number: 1, Name: "Account", TypeDefinition: "ACCOUNT"},
					{ID: PeriodDimID, Number: 2, Name: "Period", TypeDefinition: "PERIOD"},
					{ID: DepartmentDimID, Number: 3, Name: "Department", TypeDefinition: "GENERIC"},
				},
			},
		},
		Hierarchy: map[string][]domain.HierarchyMember{
			HierarchyKey(FoundationModelID, 1, ""): {
				{ID: "a1", Name: "Balance Sheet", Alias: "BS", NumChildren: 1},
				{ID: "a2", Name: "Income Statement", Alias: "IS", NumChildren: 1},
			},
			HierarchyKey(FoundationModelID, 1, "a1"): {
				{ID: "a11", Name: "Assets", Alias: "Assets"},
			},
			HierarchyKey(FoundationModelID, 1, "a2"): {
				{ID: "a21", Name: "Net Income", Alias: "NI", NumChildren: 1},
			},
			HierarchyKey(FoundationModelID, 1, "a21"): {
				{ID: "a211", Name: "Revenue", Alias: "Revenue"},
			},
		},
		Search: map[string]json.RawMessage{
			SearchKey(FoundationModelID, AccountDimID, "Revenue"): json.RawMessage(
				`[{"type":"MEMBER","name":"Revenue","alias":"Revenue","dimensionId":101}]`),
			SearchKey(FoundationModelID, PeriodDimID, "2022"): json.RawMessage(
				`{"results":[{"type":"MEMBER","name":"2022","alias":"FY2022"}]}`),
		},
	}
}

// WithModels replaces the model list, keeping the foundation details for every id.
func (f *FakeDataService) WithModels(models ...domain.ModelInfo) *FakeDataService {
	f.Models = models
	for _, m := range models {
		if _, ok := f.Details[m.ID]; !ok {
			d := *f.Details[FoundationModelID]
			d.ID = m.ID
			f.Details[m.ID] = &d
		}
	}
	return f
}
