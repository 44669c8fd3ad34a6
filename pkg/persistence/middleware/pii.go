package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type piiMiddleware struct {
	next     ports.TranscriptStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns
// before saving. It covers the question, the generated query, the predicted
// members, the validation message, the response and the error, as well as string
// tool arguments and string or raw JSON tool results.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.TranscriptStore) ports.TranscriptStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, transcript *domain.Transcript) error {
	// Copy so the caller's transcript keeps the original text.
	cloned := *transcript
	if transcript.State != nil {
		s := transcript.State.Snapshot()
		s.UserQuery = m.mask(s.UserQuery)
		s.GeneratedQuery = m.maskPtr(s.GeneratedQuery)
		s.Response = m.maskPtr(s.Response)
		s.Error = m.maskPtr(s.Error)
		if s.Validation != nil {
			s.Validation.Message = m.mask(s.Validation.Message)
		}
		for i := range s.PredictedMembers {
			s.PredictedMembers[i].Name = m.mask(s.PredictedMembers[i].Name)
			s.PredictedMembers[i].Alias = m.mask(s.PredictedMembers[i].Alias)
		}
		for i := range s.ToolCalls {
			for k, v := range s.ToolCalls[i].Args {
				if str, ok := v.(string); ok {
					s.ToolCalls[i].Args[k] = m.mask(str)
				}
			}
			s.ToolCalls[i].Result = m.maskResult(s.ToolCalls[i].Result)
		}
		cloned.State = s
	}
	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Transcript, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

// maskResult masks string results and raw JSON results. Raw JSON is kept as is
// when masking would leave it unparsable.
func (m *piiMiddleware) maskResult(result any) any {
	switch v := result.(type) {
	case string:
		return m.mask(v)
	case json.RawMessage:
		masked := json.RawMessage(m.mask(string(v)))
		if json.Valid(masked) {
			return masked
		}
	}
	return result
}

func (m *piiMiddleware) maskPtr(s *string) *string {
	if s == nil {
		return nil
	}
	masked := m.mask(*s)
	return &masked
}
