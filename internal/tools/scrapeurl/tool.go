package scrapeurl

import (
	"context"
	"encoding/json"

	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/pageargs"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Tool renders a page in the browser and returns it as markdown.
type Tool struct {
	svc pageargs.Scraper
}

// NewTool creates a new scrape_url tool
func NewTool(svc pageargs.Scraper) *Tool {
	return &Tool{svc: svc}
}

func (t *Tool) Name() string {
	return scraper.OpScrapeURL
}

func (t *Tool) Description() string {
	return "Load a web page in a headless browser and return its main readable content as markdown, with the page title and final URL after redirects. Navigation, header, footer and sidebar noise is removed."
}

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":             pageargs.URLProperty(),
			"wait_time":       pageargs.WaitProperty(),
			"timeout_seconds": pageargs.TimeoutProperty(),
		},
		"required": []string{"url"},
	}
}

func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params pageargs.PageParams
	if err := pageargs.Decode(input, &params); err != nil {
		return pageargs.ErrorResult(err), nil
	}
	req, err := params.Request()
	if err != nil {
		return pageargs.ErrorResult(err), nil
	}

	L_debug("scrape_url: request", "url", req.URL, "wait", req.Wait.String(), "timeout", req.Timeout.String())

	res, err := t.svc.ScrapeURL(ctx, req)
	return pageargs.Result(res, err), nil
}
