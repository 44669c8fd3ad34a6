package domain

import "fmt"

// Update is the partial state change produced by one stage execution.
type Update struct {
	SelectedModel    *ModelInfo
	PredictedMembers []Member
	GeneratedQuery   *string
	Validation       *QueryValidation
	Response         *string
	Error            *string
	NextStep         Step
	ToolCalls        []ToolCallRecord
}

// Fail builds the update for a stage that could not complete.
// Tool calls made before the failure are kept in the trail.
func Fail(calls []ToolCallRecord, format string, args ...any) Update {
	return Update{
		Error:     Ptr(fmt.Sprintf(format, args...)),
		NextStep:  StepError,
		ToolCalls: calls,
	}
}

// Violation describes why an update breaks the error/ERROR pairing, or "" if it does not.
func (u Update) Violation() string {
	switch {
	case u.Error != nil && u.NextStep != StepError:
		return fmt.Sprintf("error set but next step is %q", u.NextStep)
	case u.Error == nil && u.NextStep == StepError:
		return "next step is ERROR but no error was set"
	}
	return ""
}

// Normalize repairs an update so that Error is set iff NextStep is ERROR.
// It returns the repaired update and whether a repair was needed.
func (u Update) Normalize(stage Stage) (Update, bool) {
	switch {
	case u.Error != nil && u.NextStep != StepError:
		u.NextStep = StepError
		return u, true
	case u.Error == nil && u.NextStep == StepError:
		u.Error = Ptr(fmt.Sprintf("%s failed without an error message", stage.Title()))
		return u, true
	}
	return u, false
}
