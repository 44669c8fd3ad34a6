package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// EventResult is the type of the final NDJSON line of a run.
const EventResult domain.EventType = "result"

// Result is the final NDJSON line of a run.
type Result struct {
	Type           domain.EventType        `json:"type"`
	RunID          string                  `json:"run_id,omitempty"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	Outcome        domain.Outcome          `json:"outcome,omitempty"`
	Response       string                  `json:"response,omitempty"`
	Query          string                  `json:"query,omitempty"`
	Members        []domain.Member         `json:"members,omitempty"`
	Validation     *domain.QueryValidation `json:"validation,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Stages         []domain.Stage          `json:"stages,omitempty"`
}

// NewResult summarizes a run for structured output.
func NewResult(tr *domain.Transcript, err error) Result {
	res := Result{Type: EventResult}
	if tr != nil {
		res.RunID = tr.RunID
		res.ConversationID = tr.ConversationID
		res.Outcome = tr.Outcome
		res.Stages = tr.Stages
		if s := tr.State; s != nil {
			res.Response = s.ResponseText()
			res.Query = s.QueryText()
			res.Members = s.PredictedMembers
			res.Validation = s.Validation
			res.Error = s.ErrorText()
		}
	}
	if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	return res
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Hooks emits every engine event as one JSON line.
func (h *JSONHandler) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, ev *domain.StageEvent) { _ = h.encode(ev) },
		OnStageLeave: func(_ context.Context, ev *domain.StageEvent) { _ = h.encode(ev) },
		OnToolCall:   func(_ context.Context, ev *domain.ToolEvent) { _ = h.encode(ev) },
		OnToolReturn: func(_ context.Context, ev *domain.ToolEvent) { _ = h.encode(ev) },
	}
}

func (h *JSONHandler) Output(ctx context.Context, tr *domain.Transcript, err error) error {
	return h.encode(NewResult(tr, err))
}

// Input reads a line that is either a JSON string, an object with a "query"
// field, or plain text.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	var obj struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Query != "" {
		return obj.Query, nil
	}
	return text, nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.encode(map[string]string{"type": "system", "message": msg})
}

func (h *JSONHandler) encode(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(v)
}
