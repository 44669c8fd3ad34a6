package domain

import "time"

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeClarification Outcome = "clarification"
	OutcomeError         Outcome = "error"
	OutcomeUnrouted      Outcome = "unrouted"
	OutcomeCanceled      Outcome = "canceled"
)

// Transcript is the read-only record of a finished run, kept for audit and UI replay.
// It is never used to resume a run.
type Transcript struct {
	RunID          string    `json:"run_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Stages         []Stage   `json:"stages"`
	Outcome        Outcome   `json:"outcome"`
	State          *State    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`

	// Sealed holds the encrypted transcript when a store encrypts at rest.
	// Stages and State are empty while it is set.
	Sealed []byte `json:"sealed,omitempty"`
}

// ClassifyOutcome derives the outcome of a terminal state.
func ClassifyOutcome(s *State) Outcome {
	switch {
	case s == nil || s.Response == nil:
		return OutcomeUnrouted
	case s.Error != nil:
		return OutcomeError
	case s.Clarification():
		return OutcomeClarification
	}
	return OutcomeAnswered
}
