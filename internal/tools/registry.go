package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// Func defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
type Func func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	tool domain.Tool
	fn   Func
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(tool domain.Tool, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = entry{tool: tool, fn: fn}
}

// Lookup returns the implementation registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.fn, nil
}

// Tools lists the registered tool descriptions sorted by name.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
