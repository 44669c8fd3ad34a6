package stages

import (
	"context"

	"github.com/aretw0/cubeflow/internal/tools"
	"github.com/aretw0/cubeflow/pkg/domain"
)

// PredictMembers guesses the relevant members with the language model and confirms
// each guess against the data service within the search budget.
// Only confirmed members are kept; an empty result is not an error.
func PredictMembers(ctx context.Context, d Deps, s *domain.State) domain.Update {
	var calls []domain.ToolCallRecord
	log := d.logger()

	model := s.SelectedModel
	if model == nil {
		rec := d.Tools.Invoke(ctx, tools.ListModels, map[string]any{})
		calls = append(calls, rec)
		if !rec.Success {
			return domain.Fail(calls, "Member prediction error: %v", rec.Result)
		}
		models, err := asModels(rec.Result)
		if err != nil {
			return domain.Fail(calls, "Member prediction error: %v", err)
		}
		if len(models) == 0 {
			return domain.Fail(calls, "Member prediction error: no models are available")
		}
		model = &models[0]
		log.DebugContext(ctx, "no model selected, using the first available", "model_id", model.ID)
	}

	rec := d.Tools.Invoke(ctx, tools.GetModelInfo, map[string]any{
		"model_id":   model.ID,
		"model_name": model.Name,
	})
	calls = append(calls, rec)
	details, ok := rec.Result.(*domain.ModelDetails)
	if !rec.Success || !ok || details == nil {
		// Without dimension metadata there is nothing to search; the failed call stays in the trail.
		log.WarnContext(ctx, "model info unavailable, skipping member search",
			"model_id", model.ID,
			"result", rec.Result,
		)
		return domain.Update{NextStep: domain.StepQueryGeneration, ToolCalls: calls}
	}

	var groups []candidateGroup
	reply, err := d.LLM.Complete(ctx, predictionMessages(s.UserQuery, details), predictionTemperature)
	if err != nil {
		log.WarnContext(ctx, "member prediction completion failed", "error", err)
	} else if groups, err = parseCandidates(reply); err != nil {
		log.WarnContext(ctx, "member prediction output ignored", "error", err)
	}

	var members []domain.Member
	for _, g := range groups {
		dim, ok := details.Dimension(g.Dimension)
		if !ok {
			log.DebugContext(ctx, "unknown dimension in prediction", "dimension", g.Dimension)
			continue
		}
		search := newDimensionSearch(d, model.ID, dim, g.Members)
		search.run(ctx)
		calls = append(calls, search.calls...)
		members = append(members, search.found...)
		log.DebugContext(ctx, "dimension searched",
			"dimension", dim.Name,
			"tool_calls", len(search.calls),
			"found", len(search.found),
		)
	}

	return domain.Update{
		PredictedMembers: members,
		NextStep:         domain.StepQueryGeneration,
		ToolCalls:        calls,
	}
}
