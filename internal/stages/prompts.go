package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/cubeflow/pkg/domain"
)

const (
	orchestrationTemperature = 0.1
	selectionTemperature     = 0.1
	predictionTemperature    = 0.1
	queryTemperature         = 0.1
)

const orchestrationPrompt = `You route financial questions to the next step of an analysis workflow.

Read the user query and answer with exactly one token:
- MODEL_SELECTION when the query does not say which model to use, or the model must be clarified.
- MEMBER_PREDICTION when the query names a model or refers to the foundation/default model.`

const selectionPrompt = `You help users pick the financial model their question is about.

Available models:
%s

Decide which model the user means. When exactly one model fits, answer with exactly:
SELECTED_MODEL_ID: <id>

When it is unclear, ask the user which model they want to use.`

const predictionPrompt = `<task>
Extract the hierarchy members of an OLAP cube that are needed to answer a natural-language question.
</task>

<tips>
- Questions about revenue, income, expenses or balances almost always need the Account dimension.
- Years, quarters and months belong to the Period dimension.
- Only list dimensions the question actually constrains.
</tips>

<format>
Answer with a JSON array and nothing else:
[
    {
        "dimension": "<dimension name>",
        "members": [
            {"name": "<member name>", "alias": "<member alias>"}
        ]
    }
]
</format>

Model information:
%s

User query: %s`

const queryPrompt = `You are an FP&A expert who writes syntactically correct Vena MQL.
- MQL is not case-sensitive.
- A dimension clause has the form dimension('<Dimension Name>': <member expression>).
- Separate clauses, and items inside a clause, with a single space.
- A dimension left out of the query means all of its members.
- A calculated member is written as a bare member expression without the dimension(...) wrapper.

Member expressions:
- member: 'Member Name'
- attribute: attribute(@'Attribute Name')
- functions: children, ichildren, descendants, idescendants, bottomlevel, ancestors, iancestors, parents
- operators: union(A B ...), intersection(A B ...), subtract(A B), not(condition)

Function behaviour:
- children: direct children of the member
- ichildren: the member and its children
- descendants: all descendants, parents before children
- idescendants: the member and all its descendants
- bottomlevel: bottom-level members under the member
- ancestors: all ancestors of the member
- iancestors: the member and its ancestors
- parents: direct parents of the member

Examples:
dimension('Account': union('5001' '5003'))
dimension('Account': union(bottomlevel('Assets') bottomlevel('Liabilities'))) dimension('Period': subtract(bottomlevel('Full Year') ichildren('Q1')))
dimension('Account': intersection(descendants('Net Income') not(children('Cost of Revenue'))))

Answer with the MQL expression only.`

func orchestrationMessages(query string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: orchestrationPrompt},
		{Role: domain.RoleUser, Content: query},
	}
}

func selectionMessages(query string, models []domain.ModelInfo) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(selectionPrompt, indentJSON(models))},
		{Role: domain.RoleUser, Content: query},
	}
}

func predictionMessages(query string, model *domain.ModelDetails) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(predictionPrompt, indentJSON(model), query)},
		{Role: domain.RoleUser, Content: "Find relevant members for this query: " + query},
	}
}

func queryMessages(query string, members []domain.Member) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: queryPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf("Generate MQL for:\nQuery: %s\nMembers:\n%s", query, formatMembers(members))},
	}
}

// formatMembers renders one "dimension: member (alias)" line per member.
func formatMembers(members []domain.Member) string {
	if len(members) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(members))
	for _, m := range members {
		line := fmt.Sprintf("%s: %s", m.Dimension, m.Name)
		if m.Alias != "" && m.Alias != m.Name {
			line += fmt.Sprintf(" (%s)", m.Alias)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
