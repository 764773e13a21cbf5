package searchtext

import (
	"context"
	"encoding/json"
	"strings"

	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/pageargs"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Tool finds a word or phrase on a rendered page.
type Tool struct {
	svc pageargs.Scraper
}

// NewTool creates a new search_text tool
func NewTool(svc pageargs.Scraper) *Tool {
	return &Tool{svc: svc}
}

func (t *Tool) Name() string {
	return scraper.OpSearchText
}

func (t *Tool) Description() string {
	return "Load a web page in a headless browser and find a word or phrase in its visible text (case-insensitive). Each match reports the text of the surrounding block and the nearest link, one match per distinct link. Useful for finding listings, product names or any text on a page."
}

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": pageargs.URLProperty(),
			"query": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Word or phrase to find, case-insensitive",
			},
			"wait_time":       pageargs.WaitProperty(),
			"timeout_seconds": pageargs.TimeoutProperty(),
		},
		"required": []string{"url", "query"},
	}
}

func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		pageargs.PageParams
		Query string `json:"query"`
	}
	if err := pageargs.Decode(input, &params); err != nil {
		return pageargs.ErrorResult(err), nil
	}
	req, err := params.Request()
	if err != nil {
		return pageargs.ErrorResult(err), nil
	}
	if strings.TrimSpace(params.Query) == "" {
		return pageargs.ErrorResult(types.InvalidInputError("query is required")), nil
	}

	L_debug("search_text: request", "url", req.URL, "query", params.Query)

	res, err := t.svc.SearchText(ctx, scraper.SearchRequest{
		PageRequest: req,
		Query:       params.Query,
	})
	return pageargs.Result(res, err), nil
}
