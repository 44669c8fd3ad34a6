package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
)

// mqlPattern matches text that reads as MQL: a dimension clause, a grammar
// function call or a bare quoted member expression.
var mqlPattern = regexp.MustCompile(`(?i)^'|\b(dimension|attribute|children|ichildren|descendants|idescendants|bottomlevel|ancestors|iancestors|parents|union|intersection|subtract|not)\s*\(`)

// GenerateQuery writes the MQL expression for the predicted members.
// When the language model returns nothing usable, or prose instead of MQL while
// members are known, the query is rendered from the members.
// The query is validated when a model was selected; validation never aborts the run.
func GenerateQuery(ctx context.Context, d Deps, s *domain.State) domain.Update {
	reply, err := d.LLM.Complete(ctx, queryMessages(s.UserQuery, s.PredictedMembers), queryTemperature)
	if err != nil {
		return domain.Fail(nil, "Query generation error: %v", err)
	}

	query := stripFences(reply)
	switch {
	case query == "":
		query = RenderQuery(s.PredictedMembers)
		d.logger().DebugContext(ctx, "empty completion, rendered query from members", "query", query)
	case len(s.PredictedMembers) > 0 && !mqlPattern.MatchString(query):
		d.logger().DebugContext(ctx, "completion is not MQL, rendered query from members", "reply", query)
		query = RenderQuery(s.PredictedMembers)
	}

	u := domain.Update{
		GeneratedQuery: domain.Ptr(query),
		NextStep:       domain.StepResponseGeneration,
	}

	if s.SelectedModel != nil && query != "" {
		rec := d.Tools.Invoke(ctx, tools.ValidateMQL, map[string]any{
			"model_id": s.SelectedModel.ID,
			"query":    query,
		})
		u.ToolCalls = append(u.ToolCalls, rec)
		if v, ok := rec.Result.(domain.QueryValidation); ok && rec.Success {
			u.Validation = &v
		} else if !rec.Success {
			u.Validation = &domain.QueryValidation{Valid: false, Message: fmt.Sprint(rec.Result)}
		}
	}
	return u
}

// RenderQuery builds a query selecting the given members, one clause per dimension
// in order of first appearance.
func RenderQuery(members []domain.Member) string {
	var order []string
	byDim := make(map[string][]string)
	for _, m := range members {
		if m.Dimension == "" || m.Name == "" {
			continue
		}
		if _, ok := byDim[m.Dimension]; !ok {
			order = append(order, m.Dimension)
		}
		byDim[m.Dimension] = append(byDim[m.Dimension], quote(m.Name))
	}

	clauses := make([]string, 0, len(order))
	for _, dim := range order {
		names := byDim[dim]
		expr := names[0]
		if len(names) > 1 {
			expr = fmt.Sprintf("union(%s)", strings.Join(names, " "))
		}
		clauses = append(clauses, fmt.Sprintf("dimension(%s: %s)", quote(dim), expr))
	}
	return strings.Join(clauses, " ")
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
