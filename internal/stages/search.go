package stages

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
)

// SearchBudget bounds the member search for one dimension.
type SearchBudget struct {
	MaxCalls int
	MaxDepth int
}

// DefaultSearchBudget allows 5 tool calls and 3 hierarchy levels per dimension.
var DefaultSearchBudget = SearchBudget{MaxCalls: 5, MaxDepth: 3}

// dimensionSearch resolves the candidates of one dimension against the data service.
type dimensionSearch struct {
	deps      Deps
	modelID   int
	dimension domain.Dimension
	wanted    []candidate
	budget    SearchBudget

	calls []domain.ToolCallRecord
	found []domain.Member
	seen  map[string]bool
}

func newDimensionSearch(d Deps, modelID int, dim domain.Dimension, wanted []candidate) *dimensionSearch {
	return &dimensionSearch{
		deps:      d,
		modelID:   modelID,
		dimension: dim,
		wanted:    wanted,
		budget:    d.budget(),
		seen:      make(map[string]bool),
	}
}

func (s *dimensionSearch) exhausted() bool {
	return len(s.calls) >= s.budget.MaxCalls
}

func (s *dimensionSearch) invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord {
	rec := s.deps.Tools.Invoke(ctx, name, args)
	s.calls = append(s.calls, rec)
	return rec
}

// run searches by name first, then walks the hierarchy breadth-first.
// It stops as soon as a level yields a match or the budget is spent.
func (s *dimensionSearch) run(ctx context.Context) {
	for _, c := range s.wanted {
		if s.exhausted() || ctx.Err() != nil {
			return
		}
		rec := s.invoke(ctx, tools.SearchMembers, map[string]any{
			"model_id":     s.modelID,
			"dimension_id": s.dimension.ID,
			"query":        firstNonEmpty(c.Name, c.Alias),
		})
		if !rec.Success {
			continue
		}
		if raw, ok := rec.Result.(json.RawMessage); ok {
			for _, hit := range parseSearchHits(raw) {
				s.match(hit.Name, hit.Alias)
			}
		}
	}
	if len(s.found) > 0 {
		return
	}
	s.walk(ctx)
}

func (s *dimensionSearch) walk(ctx context.Context) {
	if s.exhausted() || ctx.Err() != nil {
		return
	}
	rec := s.invoke(ctx, tools.GetTopLevelMembers, map[string]any{
		"model_id":         s.modelID,
		"dimension_number": s.dimension.Number,
	})
	level := s.scan(rec)

	for depth := 2; depth <= s.budget.MaxDepth && len(s.found) == 0; depth++ {
		var next []domain.HierarchyMember
		for _, parent := range level {
			if s.exhausted() || ctx.Err() != nil {
				return
			}
			if parent.NumChildren == 0 {
				continue
			}
			rec := s.invoke(ctx, tools.GetChildrenOfMember, map[string]any{
				"model_id":         s.modelID,
				"dimension_number": s.dimension.Number,
				"member_id":        parent.ID,
			})
			next = append(next, s.scan(rec)...)
		}
		level = next
	}
}

// scan matches a hierarchy level and returns it for the next drill-down.
func (s *dimensionSearch) scan(rec domain.ToolCallRecord) []domain.HierarchyMember {
	if !rec.Success {
		return nil
	}
	members, _ := rec.Result.([]domain.HierarchyMember)
	for _, m := range members {
		s.match(m.Name, m.Alias)
	}
	return members
}

// match records the member if it corresponds to one of the wanted candidates.
func (s *dimensionSearch) match(name, alias string) {
	for _, c := range s.wanted {
		if !sameMember(c, name, alias) {
			continue
		}
		key := strings.ToLower(name)
		if s.seen[key] {
			return
		}
		s.seen[key] = true
		s.found = append(s.found, domain.Member{Name: name, Alias: alias, Dimension: s.dimension.Name})
		return
	}
}

func sameMember(c candidate, name, alias string) bool {
	for _, want := range []string{c.Name, c.Alias} {
		if want == "" {
			continue
		}
		if strings.EqualFold(want, name) || (alias != "" && strings.EqualFold(want, alias)) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
