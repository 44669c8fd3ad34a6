package stages

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
)

var selectedModelPattern = regexp.MustCompile(`(?i)SELECTED_MODEL_ID:\s*([^\s"'.,]*)`)

// markdownEmphasis strips bold and code markers the model wraps the id in.
var markdownEmphasis = strings.NewReplacer("*", "", "`", "")

// SelectModel lists the available models and picks the one the user means,
// or asks the user to clarify.
func SelectModel(ctx context.Context, d Deps, s *domain.State) domain.Update {
	rec := d.Tools.Invoke(ctx, tools.ListModels, map[string]any{})
	calls := []domain.ToolCallRecord{rec}
	if !rec.Success {
		return domain.Fail(calls, "Model selection error: %v", rec.Result)
	}

	models, err := asModels(rec.Result)
	if err != nil {
		return domain.Fail(calls, "Model selection error: %v", err)
	}
	switch len(models) {
	case 0:
		return domain.Fail(calls, "Model selection error: no models are available")
	case 1:
		d.logger().DebugContext(ctx, "single model available, selecting it", "model_id", models[0].ID)
		return domain.Update{SelectedModel: &models[0], NextStep: domain.StepMemberPrediction, ToolCalls: calls}
	}

	reply, err := d.LLM.Complete(ctx, selectionMessages(s.UserQuery, models), selectionTemperature)
	if err != nil {
		return domain.Fail(calls, "Model selection error: %v", err)
	}

	id, found, err := parseSelectedModelID(reply)
	if err != nil {
		return domain.Fail(calls, "Model selection error: %v", err)
	}
	if !found {
		return domain.Update{
			Response:  domain.Ptr(clarification(reply, models)),
			NextStep:  domain.StepEnd,
			ToolCalls: calls,
		}
	}

	for i := range models {
		if models[i].ID == id {
			return domain.Update{SelectedModel: &models[i], NextStep: domain.StepMemberPrediction, ToolCalls: calls}
		}
	}
	return domain.Fail(calls, "Model selection error: model %d is not in the list of available models", id)
}

// parseSelectedModelID extracts the id after the SELECTED_MODEL_ID marker.
// found is false when the marker is absent.
func parseSelectedModelID(reply string) (id int, found bool, err error) {
	m := selectedModelPattern.FindStringSubmatch(markdownEmphasis.Replace(reply))
	if m == nil {
		return 0, false, nil
	}
	id, err = strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return 0, true, fmt.Errorf("cannot parse selected model id %q", m[1])
	}
	return id, true, nil
}

// clarification appends the available models to the language model's question.
func clarification(reply string, models []domain.ModelInfo) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(reply))
	if b.Len() == 0 {
		b.WriteString("Which model would you like to use?")
	}
	b.WriteString("\n\nAvailable models:\n")
	for _, m := range models {
		fmt.Fprintf(&b, "- %s (id %d)", m.Name, m.ID)
		if m.Description != "" {
			fmt.Fprintf(&b, ": %s", m.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func asModels(result any) ([]domain.ModelInfo, error) {
	switch v := result.(type) {
	case []domain.ModelInfo:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected %s result of type %T", tools.ListModels, result)
	}
}
