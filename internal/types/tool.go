// Package types provides shared type definitions to avoid import cycles.
package types

// ToolDefinition describes a tool to a client: name, description and the
// JSON Schema of its input object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}
