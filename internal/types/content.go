package types

import (
	"encoding/json"
	"strings"
)

// ContentBlock represents a single block of content in a tool result.
type ContentBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text,omitempty"`
}

// ToolResult represents the structured result from a tool execution.
// Tools return this instead of a plain string. Structured carries the
// machine-readable payload; Content mirrors it as JSON text for clients
// that only read text blocks.
type ToolResult struct {
	Content    []ContentBlock `json:"content"`
	Structured any            `json:"structured,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
}

// TextResult creates a ToolResult with a single text block.
func TextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// JSONResult creates a ToolResult whose text block is the indented JSON of v
// and whose structured payload is v itself.
func JSONResult(v any) (*ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	r := TextResult(string(data))
	r.Structured = v
	return r, nil
}

// ErrorResult creates a ToolResult with an error message.
func ErrorResult(msg string) *ToolResult {
	return &ToolResult{
		Content: []ContentBlock{
			{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// ToolErrorResult creates an error ToolResult carrying the {kind, message}
// body both as text and as structured payload.
func ToolErrorResult(te *ToolError) *ToolResult {
	data, err := json.Marshal(te)
	if err != nil {
		return ErrorResult(te.Message)
	}
	r := ErrorResult(string(data))
	r.Structured = te
	return r
}

// Text concatenates all text blocks.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Content))
	for _, b := range r.Content {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
