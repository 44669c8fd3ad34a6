package domain

import "encoding/json"

// ToolCallRecord is one entry of the audit trail kept in State.ToolCalls.
// Success distinguishes "got a result" from "caught an error and stringified it".
// Records are never mutated after being appended to a state.
type ToolCallRecord struct {
	Name    string         `json:"name"`
	Args    map[string]any `json:"args"`
	Result  any            `json:"result"`
	Success bool           `json:"success"`
}

// Clone returns a deep copy; neither Args nor Result share memory with r.
func (r ToolCallRecord) Clone() ToolCallRecord {
	if r.Args != nil {
		args := make(map[string]any, len(r.Args))
		for k, v := range r.Args {
			args[k] = CloneValue(v)
		}
		r.Args = args
	}
	r.Result = CloneValue(r.Result)
	return r
}

// CloneValue deep-copies a tool argument or result.
// Catalog result types keep their type; other reference types are copied
// through JSON and come back as generic maps, slices and scalars.
func CloneValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float64, QueryValidation, ModelInfo:
		return x
	case []ModelInfo:
		return cloneSlice(x)
	case []HierarchyMember:
		return cloneSlice(x)
	case []Member:
		return cloneSlice(x)
	case *ModelDetails:
		if x == nil {
			return x
		}
		d := x.clone()
		return &d
	case ModelDetails:
		return x.clone()
	case json.RawMessage:
		if x == nil {
			return x
		}
		return append(json.RawMessage(nil), x...)
	case []byte:
		return append([]byte(nil), x...)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}

// Tool describes a data-service operation exposed through the tool invoker.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
