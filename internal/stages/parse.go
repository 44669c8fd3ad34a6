package stages

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// candidateGroup is one dimension of the language model's member guess.
type candidateGroup struct {
	Dimension string      `json:"dimension"`
	Members   []candidate `json:"members"`
}

type candidate struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// stripFences returns the body of the first fenced block, or the trimmed input.
func stripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "`"))
}

// parseCandidates decodes the member guess, repairing the JSON the model produced when needed.
func parseCandidates(reply string) ([]candidateGroup, error) {
	content := stripFences(reply)
	if start := strings.Index(content, "["); start > 0 {
		content = content[start:]
	}
	if content == "" {
		return nil, fmt.Errorf("empty member prediction")
	}

	var groups []candidateGroup
	if err := json.Unmarshal([]byte(content), &groups); err == nil {
		return clean(groups), nil
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return nil, fmt.Errorf("failed to repair member prediction: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &groups); err != nil {
		return nil, fmt.Errorf("failed to decode member prediction: %w", err)
	}
	return clean(groups), nil
}

func clean(groups []candidateGroup) []candidateGroup {
	out := groups[:0]
	for _, g := range groups {
		g.Dimension = strings.TrimSpace(g.Dimension)
		members := g.Members[:0]
		for _, m := range g.Members {
			m.Name = strings.TrimSpace(m.Name)
			m.Alias = strings.TrimSpace(m.Alias)
			if m.Name != "" || m.Alias != "" {
				members = append(members, m)
			}
		}
		g.Members = members
		if g.Dimension != "" && len(g.Members) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// searchHit is a member or attribute returned by the search endpoint.
type searchHit struct {
	Name  string
	Alias string
}

// parseSearchHits collects every object carrying a "name" from a search payload.
func parseSearchHits(raw json.RawMessage) []searchHit {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	var hits []searchHit
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if name, ok := t["name"].(string); ok {
				alias, _ := t["alias"].(string)
				hits = append(hits, searchHit{Name: name, Alias: alias})
			}
			for _, child := range t {
				switch child.(type) {
				case []any, map[string]any:
					walk(child)
				}
			}
		}
	}
	walk(payload)
	return hits
}
