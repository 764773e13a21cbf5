package extractelements

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/pageargs"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

// Limits bounds the limit argument; zero values use the defaults.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Tool runs a CSS selector query against a rendered page.
type Tool struct {
	svc          pageargs.Scraper
	defaultLimit int
	maxLimit     int
}

// NewTool creates a new extract_elements tool
func NewTool(svc pageargs.Scraper, cfg Limits) *Tool {
	t := &Tool{svc: svc, defaultLimit: cfg.DefaultLimit, maxLimit: cfg.MaxLimit}
	if t.maxLimit <= 0 {
		t.maxLimit = maxLimit
	}
	if t.defaultLimit <= 0 || t.defaultLimit > t.maxLimit {
		t.defaultLimit = min(defaultLimit, t.maxLimit)
	}
	return t
}

func (t *Tool) Name() string {
	return scraper.OpExtractElements
}

func (t *Tool) Description() string {
	return "Load a web page in a headless browser and return the elements matching a CSS selector, in document order, with their tag, text and attributes. The selector is evaluated by the browser, so any selector Chromium supports works. The total number of matches is reported even when limited."
}

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": pageargs.URLProperty(),
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector, e.g. \"article h2 > a\" or \"li.item[data-id]\"",
			},
			"css_selector": map[string]any{
				"type":        "string",
				"description": "Alias for selector",
			},
			"limit": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     t.maxLimit,
				"description": fmt.Sprintf("Maximum number of elements to return (default: %d)", t.defaultLimit),
			},
			"wait_time":       pageargs.WaitProperty(),
			"timeout_seconds": pageargs.TimeoutProperty(),
		},
		"required": []string{"url"},
		// one of the two selector spellings must be present
		"anyOf": []map[string]any{
			{"required": []string{"selector"}},
			{"required": []string{"css_selector"}},
		},
	}
}

func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		pageargs.PageParams
		Selector    string `json:"selector"`
		CSSSelector string `json:"css_selector"`
		Limit       *int   `json:"limit"`
	}
	if err := pageargs.Decode(input, &params); err != nil {
		return pageargs.ErrorResult(err), nil
	}
	req, err := params.Request()
	if err != nil {
		return pageargs.ErrorResult(err), nil
	}

	selector := strings.TrimSpace(params.Selector)
	if selector == "" {
		selector = strings.TrimSpace(params.CSSSelector)
	}
	if selector == "" {
		return pageargs.ErrorResult(types.InvalidInputError("selector is required")), nil
	}

	limit := t.defaultLimit
	if params.Limit != nil {
		if *params.Limit < 1 || *params.Limit > t.maxLimit {
			return pageargs.ErrorResult(types.InvalidInputError("limit must be between 1 and %d, got %d", t.maxLimit, *params.Limit)), nil
		}
		limit = *params.Limit
	}

	L_debug("extract_elements: request", "url", req.URL, "selector", selector, "limit", limit)

	res, err := t.svc.ExtractElements(ctx, scraper.ElementsRequest{
		PageRequest: req,
		Selector:    selector,
		Limit:       limit,
	})
	return pageargs.Result(res, err), nil
}
