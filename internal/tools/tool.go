// Package tools provides the tool execution framework.
package tools

import (
	"context"
	"encoding/json"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a human-readable description for the client
	Description() string

	// Schema returns the JSON Schema for the tool's input parameters
	Schema() map[string]any

	// Execute runs the tool with the given input. Caller-facing failures are
	// returned as results with IsError set; a Go error means the tool could
	// not run at all.
	Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error)
}

// ToDefinition converts a Tool to its client-facing definition
func ToDefinition(t Tool) types.ToolDefinition {
	return types.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Schema(),
	}
}
