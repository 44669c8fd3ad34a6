package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// GenerateResponse formats the final answer. It makes no external calls.
func GenerateResponse(_ context.Context, _ Deps, s *domain.State) domain.Update {
	if s.GeneratedQuery == nil {
		return domain.Fail(nil, "Response generation error: no query was generated")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on your query: %q\n\n", s.UserQuery)
	b.WriteString("I've identified the following relevant members:\n")
	b.WriteString(describeMembers(s.PredictedMembers))
	b.WriteString("\n\nGenerated MQL Query:\n")
	b.WriteString(s.QueryText())
	b.WriteString("\n\n")
	if v := s.Validation; v != nil {
		if v.Valid {
			b.WriteString("The data service accepted this query as valid.\n\n")
		} else {
			fmt.Fprintf(&b, "Note: the data service could not validate this query: %s\n\n", v.Message)
		}
	}
	b.WriteString("This query can be executed against your Vena model to retrieve the requested financial data.")

	return domain.Update{Response: domain.Ptr(b.String()), NextStep: domain.StepEnd}
}

// HandleError turns the run error into the user-visible response.
func HandleError(_ context.Context, _ Deps, s *domain.State) domain.Update {
	msg := s.ErrorText()
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return domain.Update{
		Response: domain.Ptr(fmt.Sprintf("I encountered an error: %s. Please try rephrasing your question.", msg)),
		NextStep: domain.StepEnd,
	}
}

func describeMembers(members []domain.Member) string {
	if len(members) == 0 {
		return "No specific members were identified."
	}
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Dimension, m.Name))
	}
	return strings.Join(parts, ", ")
}
