package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/cubeflow/internal/presentation/tui"
	"github.com/aretw0/cubeflow/pkg/runner"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// IOOptions selects the presentation of ask and chat.
type IOOptions struct {
	JSON  bool
	Quiet bool
	In    *os.File
	Out   *os.File
}

// NewIOHandler returns a JSON handler, or a text handler that renders
// markdown when Out is a terminal.
func NewIOHandler(opts IOOptions) runner.IOHandler {
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if opts.JSON {
		return runner.NewJSONHandler(in, out)
	}

	textOpts := []runner.TextHandlerOption{runner.WithQuiet(opts.Quiet)}
	if tui.IsTerminal(out) {
		textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer(tui.Width(out))))
	}
	return runner.NewTextHandler(in, out, textOpts...)
}

// PrintBanner writes the banner unless the output is machine-readable.
func PrintBanner(w io.Writer, opts IOOptions) {
	if opts.JSON || opts.Quiet {
		return
	}
	tui.PrintBanner(w)
}

// HandleExecutionError turns interruptions into a clean exit.
func HandleExecutionError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
