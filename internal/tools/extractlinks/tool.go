package extractlinks

import (
	"context"
	"encoding/json"

	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/pageargs"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Tool lists the links of a rendered page.
type Tool struct {
	svc pageargs.Scraper
}

// NewTool creates a new extract_links tool
func NewTool(svc pageargs.Scraper) *Tool {
	return &Tool{svc: svc}
}

func (t *Tool) Name() string {
	return scraper.OpExtractLinks
}

func (t *Tool) Description() string {
	return "Load a web page in a headless browser and list its http(s) links in document order, resolved to absolute URLs. Each link reports whether it is on the same host as the page (subdomains are not the same host)."
}

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": pageargs.URLProperty(),
			"same_domain_only": map[string]any{
				"type":        "boolean",
				"description": "Only return links on the same host as the page (default: false)",
			},
			"wait_time":       pageargs.WaitProperty(),
			"timeout_seconds": pageargs.TimeoutProperty(),
		},
		"required": []string{"url"},
	}
}

func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		pageargs.PageParams
		SameDomainOnly bool `json:"same_domain_only"`
	}
	if err := pageargs.Decode(input, &params); err != nil {
		return pageargs.ErrorResult(err), nil
	}
	req, err := params.Request()
	if err != nil {
		return pageargs.ErrorResult(err), nil
	}

	L_debug("extract_links: request", "url", req.URL, "sameDomainOnly", params.SameDomainOnly)

	res, err := t.svc.ExtractLinks(ctx, scraper.LinksRequest{
		PageRequest:    req,
		SameDomainOnly: params.SameDomainOnly,
	})
	return pageargs.Result(res, err), nil
}
