package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// MaxToolResultDisplay caps how much of a tool result the text handler prints.
const MaxToolResultDisplay = 500

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	// Quiet suppresses stage and tool progress.
	Quiet bool

	inputChan chan inputResult
	startOnce sync.Once
	mu        sync.Mutex
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet hides stage and tool progress.
func WithQuiet(quiet bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = quiet
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hooks prints one line per stage and a block per tool call.
func (h *TextHandler) Hooks() domain.LifecycleHooks {
	if h.Quiet {
		return domain.LifecycleHooks{}
	}
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, ev *domain.StageEvent) {
			h.printf("▸ Agent: %s\n", ev.Stage.Title())
		},
		OnStageLeave: func(_ context.Context, ev *domain.StageEvent) {
			for _, call := range ev.NewToolCalls {
				h.printf("%s", FormatToolCall(call))
			}
			if ev.Signal == domain.StepError && ev.Snapshot != nil {
				h.printf("  ❌ Error: %s\n", ev.Snapshot.ErrorText())
				return
			}
			h.printf("  ✅ Completed\n")
		},
	}
}

// FormatToolCall renders a tool call the way the chat UI shows it:
// icon and title, indented arguments, result truncated to MaxToolResultDisplay.
func FormatToolCall(call domain.ToolCallRecord) string {
	var sb strings.Builder
	icon := "🔧"
	if !call.Success {
		icon = "❌"
	}
	fmt.Fprintf(&sb, "  %s %s\n", icon, titleCase(call.Name))
	if len(call.Args) > 0 {
		if args, err := json.MarshalIndent(call.Args, "     ", "  "); err == nil {
			fmt.Fprintf(&sb, "     Arguments: %s\n", args)
		}
	}
	if call.Result != "" {
		result := call.Result
		if len(result) > MaxToolResultDisplay {
			result = result[:MaxToolResultDisplay] + "...\n[Result truncated]"
		}
		fmt.Fprintf(&sb, "     Result: %s\n", result)
	}
	return sb.String()
}

// Output renders the response, or the error when the run produced none.
func (h *TextHandler) Output(ctx context.Context, tr *domain.Transcript, err error) error {
	var text string
	switch {
	case tr != nil && tr.State != nil && tr.State.Response != nil:
		text = tr.State.ResponseText()
	case err != nil:
		text = fmt.Sprintf("An error occurred: %v", err)
	default:
		text = "No response generated"
	}

	output := text
	if h.Renderer != nil {
		if rendered, rerr := h.Renderer(text); rerr == nil {
			output = rendered
		}
	}
	h.printf("\n%s\n", strings.TrimSpace(output))

	// A response can coexist with a run error (e.g. step limit); surface both.
	if err != nil && tr != nil && tr.State != nil && tr.State.Response != nil {
		h.printf("[System] run ended with error: %v\n", err)
	}
	return nil
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Input prompts and reads one line; ctx cancellation unblocks the read.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		h.printf("> ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	h.printf("[System] %s\n", msg)
	return nil
}

func (h *TextHandler) printf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.Writer, format, args...)
}

func titleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
