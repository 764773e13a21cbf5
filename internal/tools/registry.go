package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// ErrUnknownTool is returned by Execute for a name nothing registered
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds the tools served to clients, by name
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique and schemas must describe a
// JSON object, since MCP clients send arguments as one.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return errors.New("tool has no name")
	}
	if typ, _ := tool.Schema()["type"].(string); typ != "object" {
		return fmt.Errorf("tool %s: input schema must have type \"object\", got %q", name, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Execute runs the named tool on input
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (*types.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool.Execute(ctx, input)
}

// List returns the registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tools))
}

// Tools returns the registered tools sorted by name
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, name := range slices.Sorted(maps.Keys(r.tools)) {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns every tool's client-facing definition, sorted by name
func (r *Registry) Definitions() []types.ToolDefinition {
	tools := r.Tools()
	defs := make([]types.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = ToDefinition(t)
	}
	return defs
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
