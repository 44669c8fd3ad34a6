package domain

// StateDiff represents the changes a single stage made to the state.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	NextStep         *Step            `json:"next_step,omitempty"`
	SelectedModel    *ModelInfo       `json:"selected_model,omitempty"`
	AppendedMembers  []Member         `json:"appended_members,omitempty"`
	GeneratedQuery   *string          `json:"generated_query,omitempty"`
	Validation       *QueryValidation `json:"validation,omitempty"`
	Response         *string          `json:"response,omitempty"`
	Error            *string          `json:"error,omitempty"`
	AppendedToolCall []ToolCallRecord `json:"appended_tool_calls,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// Members and tool calls are append-only, so only the new tail is reported.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &State{}
	}

	diff := &StateDiff{}

	if oldState.NextStep != newState.NextStep {
		step := newState.NextStep
		diff.NextStep = &step
	}
	if oldState.SelectedModel == nil && newState.SelectedModel != nil {
		m := *newState.SelectedModel
		diff.SelectedModel = &m
	}
	if len(newState.PredictedMembers) > len(oldState.PredictedMembers) {
		diff.AppendedMembers = newState.PredictedMembers[len(oldState.PredictedMembers):]
	}
	if changed(oldState.GeneratedQuery, newState.GeneratedQuery) {
		diff.GeneratedQuery = copyString(newState.GeneratedQuery)
	}
	if newState.Validation != nil && (oldState.Validation == nil || *oldState.Validation != *newState.Validation) {
		v := *newState.Validation
		diff.Validation = &v
	}
	if changed(oldState.Response, newState.Response) {
		diff.Response = copyString(newState.Response)
	}
	if changed(oldState.Error, newState.Error) {
		diff.Error = copyString(newState.Error)
	}
	if len(newState.ToolCalls) > len(oldState.ToolCalls) {
		diff.AppendedToolCall = newState.ToolCalls[len(oldState.ToolCalls):]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func changed(a, b *string) bool {
	if b == nil {
		return false
	}
	return a == nil || *a != *b
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.NextStep == nil &&
		d.SelectedModel == nil &&
		len(d.AppendedMembers) == 0 &&
		d.GeneratedQuery == nil &&
		d.Validation == nil &&
		d.Response == nil &&
		d.Error == nil &&
		len(d.AppendedToolCall) == 0
}
