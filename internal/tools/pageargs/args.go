// Package pageargs holds the argument handling shared by the page tools.
package pageargs

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/roelfdiedericks/scrapemcp/internal/browser"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Scraper is the subset of *scraper.Service the tools call.
type Scraper interface {
	ScrapeURL(ctx context.Context, req scraper.PageRequest) (*types.ScrapeResult, error)
	ExtractLinks(ctx context.Context, req scraper.LinksRequest) (*types.LinksResult, error)
	ExtractElements(ctx context.Context, req scraper.ElementsRequest) (*types.ElementsResult, error)
	SearchText(ctx context.Context, req scraper.SearchRequest) (*types.SearchResult, error)
}

// PageParams are the arguments every page tool accepts.
type PageParams struct {
	URL            string `json:"url"`
	WaitTime       *int   `json:"wait_time"`
	TimeoutSeconds *int   `json:"timeout_seconds"`
}

// Decode unmarshals tool input into v. Empty input decodes as {}.
func Decode(input json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return types.InvalidInputCause(err, "invalid arguments: %v", err)
	}
	return nil
}

// Request validates the shared parameters and builds a page request.
// Timeouts and waits above the configured maximums are capped later.
func (p PageParams) Request() (scraper.PageRequest, error) {
	req := scraper.PageRequest{URL: strings.TrimSpace(p.URL), Wait: browser.WaitDefault}
	if req.URL == "" {
		return req, types.InvalidInputError("url is required")
	}
	if p.TimeoutSeconds != nil {
		if *p.TimeoutSeconds <= 0 {
			return req, types.InvalidInputError("timeout_seconds must be positive, got %d", *p.TimeoutSeconds)
		}
		req.Timeout = time.Duration(*p.TimeoutSeconds) * time.Second
	}
	if p.WaitTime != nil {
		if *p.WaitTime < 0 {
			return req, types.InvalidInputError("wait_time must not be negative, got %d", *p.WaitTime)
		}
		req.Wait = time.Duration(*p.WaitTime) * time.Second
	}
	return req, nil
}

// Result turns a service outcome into a tool result. Failures become error
// results carrying {kind, message}.
func Result(v any, err error) *types.ToolResult {
	if err != nil {
		return types.ToolErrorResult(types.AsToolError(err))
	}
	r, err := types.JSONResult(v)
	if err != nil {
		return types.ToolErrorResult(types.InternalError(err))
	}
	return r
}

// ErrorResult wraps an argument error as a tool result.
func ErrorResult(err error) *types.ToolResult {
	return types.ToolErrorResult(types.AsToolError(err))
}

// URLProperty is the schema of the url argument.
func URLProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Absolute http(s) URL of the page to load",
	}
}

// TimeoutProperty is the schema of the timeout_seconds argument.
func TimeoutProperty() map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     1,
		"description": "Navigation timeout in seconds (default: 30, capped by server config)",
	}
}

// WaitProperty is the schema of the wait_time argument.
func WaitProperty() map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     0,
		"description": "Extra seconds to wait after load for JavaScript-rendered content (default: from server config, 2)",
	}
}
