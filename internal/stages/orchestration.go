package stages

import (
	"context"
	"strings"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// Orchestrate classifies the query as needing model selection or going straight to member prediction.
func Orchestrate(ctx context.Context, d Deps, s *domain.State) domain.Update {
	reply, err := d.LLM.Complete(ctx, orchestrationMessages(s.UserQuery), orchestrationTemperature)
	if err != nil {
		return domain.Fail(nil, "Orchestration error: %v", err)
	}

	next := classifyRoute(reply)
	d.logger().DebugContext(ctx, "orchestration decided", "reply", reply, "next_step", next)
	return domain.Update{NextStep: next}
}

// classifyRoute returns the first routing token found in reply.
// Replies naming neither token fall back to MODEL_SELECTION, which can still ask the user.
func classifyRoute(reply string) domain.Step {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-':
			return '_'
		}
		return r
	}, strings.ToUpper(reply))

	sel := strings.Index(normalized, string(domain.StepModelSelection))
	pred := strings.Index(normalized, string(domain.StepMemberPrediction))
	switch {
	case pred >= 0 && (sel < 0 || pred < sel):
		return domain.StepMemberPrediction
	default:
		return domain.StepModelSelection
	}
}
