package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
)

// ErrUnknownTool is returned when a tool name is not in the invoker table.
var ErrUnknownTool = errors.New("unknown tool")

// Invoker executes tools by name and records every call.
// It never returns an error to the caller: failures become records with
// Success=false and a Result of "Error: <message>".
type Invoker struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTimeout bounds every tool call. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		i.timeout = d
	}
}

// WithLogger sets the invoker logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithRegistry replaces the default data-service catalog.
func WithRegistry(r *Registry) Option {
	return func(i *Invoker) {
		i.registry = r
	}
}

// NewInvoker creates an invoker over the data-service catalog.
func NewInvoker(ds ports.DataService, opts ...Option) *Invoker {
	i := &Invoker{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.registry == nil {
		i.registry = NewCatalog(ds)
	}
	return i
}

// Require fails if any of the names is missing from the table.
func (i *Invoker) Require(names ...string) error {
	var errs []error
	for _, name := range names {
		if _, err := i.registry.Lookup(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tools lists the tools the invoker can run.
func (i *Invoker) Tools() []domain.Tool {
	return i.registry.Tools()
}

// Invoke runs a tool and returns its record.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord {
	if args == nil {
		args = map[string]any{}
	}
	record := domain.ToolCallRecord{Name: name, Args: args}

	fn, err := i.registry.Lookup(name)
	if err != nil {
		return i.fail(record, err)
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	result, err := i.call(ctx, fn, args)
	if err != nil {
		return i.fail(record, err)
	}

	i.logger.DebugContext(ctx, "tool call succeeded", "tool", name)
	record.Result = result
	record.Success = true
	return record
}

func (i *Invoker) call(ctx context.Context, fn Func, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return fn(ctx, args)
}

func (i *Invoker) fail(record domain.ToolCallRecord, err error) domain.ToolCallRecord {
	i.logger.Warn("tool call failed", "tool", record.Name, "error", err)
	record.Result = "Error: " + err.Error()
	record.Success = false
	return record
}
