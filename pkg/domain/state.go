package domain

// State is the single record threaded through one workflow run.
// It is owned by the engine for the duration of the run; stages only ever see
// snapshots and describe their changes as an Update.
type State struct {
	UserQuery        string           `json:"user_query"`
	SelectedModel    *ModelInfo       `json:"selected_model,omitempty"`
	PredictedMembers []Member         `json:"predicted_members"`
	GeneratedQuery   *string          `json:"generated_query,omitempty"`
	Validation       *QueryValidation `json:"validation,omitempty"`
	Response         *string          `json:"response,omitempty"`
	Error            *string          `json:"error,omitempty"`
	NextStep         Step             `json:"next_step,omitempty"`
	ToolCalls        []ToolCallRecord `json:"tool_calls"`
}

// NewState creates a fresh state for a user query.
func NewState(query string) *State {
	return &State{
		UserQuery:        query,
		PredictedMembers: []Member{},
		ToolCalls:        []ToolCallRecord{},
	}
}

// Done reports whether the run produced its final response.
func (s *State) Done() bool {
	return s.Response != nil
}

// Clarification reports whether the run paused to ask the user which model to use.
func (s *State) Clarification() bool {
	return s.Response != nil && s.Error == nil && s.SelectedModel == nil && s.GeneratedQuery == nil
}

// ResponseText returns the response or "" when absent.
func (s *State) ResponseText() string {
	return deref(s.Response)
}

// ErrorText returns the error message or "" when absent.
func (s *State) ErrorText() string {
	return deref(s.Error)
}

// QueryText returns the generated query or "" when absent.
func (s *State) QueryText() string {
	return deref(s.GeneratedQuery)
}

// Snapshot returns a deep copy safe to hand to observers and stages.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	if s.SelectedModel != nil {
		m := *s.SelectedModel
		next.SelectedModel = &m
	}
	if s.Validation != nil {
		v := *s.Validation
		next.Validation = &v
	}
	next.GeneratedQuery = copyString(s.GeneratedQuery)
	next.Response = copyString(s.Response)
	next.Error = copyString(s.Error)

	next.PredictedMembers = make([]Member, len(s.PredictedMembers))
	copy(next.PredictedMembers, s.PredictedMembers)

	next.ToolCalls = make([]ToolCallRecord, len(s.ToolCalls))
	for i, tc := range s.ToolCalls {
		next.ToolCalls[i] = tc.Clone()
	}
	return &next
}

// Apply merges a stage update and returns the resulting state.
// The receiver is left untouched. Members and tool calls are appended, optional
// fields are only written when the update carries them (a nil field never clears
// a value), and NextStep is always replaced.
func (s *State) Apply(u Update) *State {
	next := s.Snapshot()

	if u.SelectedModel != nil && next.SelectedModel == nil {
		m := *u.SelectedModel
		next.SelectedModel = &m
	}
	next.PredictedMembers = append(next.PredictedMembers, u.PredictedMembers...)
	if u.GeneratedQuery != nil {
		next.GeneratedQuery = copyString(u.GeneratedQuery)
	}
	if u.Validation != nil {
		v := *u.Validation
		next.Validation = &v
	}
	if u.Response != nil && next.Response == nil {
		next.Response = copyString(u.Response)
	}
	if u.Error != nil {
		next.Error = copyString(u.Error)
	}
	for _, tc := range u.ToolCalls {
		next.ToolCalls = append(next.ToolCalls, tc.Clone())
	}
	next.NextStep = u.NextStep
	return next
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
