package tools

import (
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/extractelements"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/extractlinks"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/pageargs"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/scrapeurl"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/searchtext"
)

// ToolsConfig holds configuration for tools
type ToolsConfig struct {
	Elements extractelements.Limits
}

// RegisterDefaults registers the page tools backed by svc
func RegisterDefaults(reg *Registry, svc pageargs.Scraper, cfg ToolsConfig) error {
	for _, t := range []Tool{
		scrapeurl.NewTool(svc),
		extractlinks.NewTool(svc),
		extractelements.NewTool(svc, cfg.Elements),
		searchtext.NewTool(svc),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	L_debug("tools: registered", "count", reg.Count(), "names", reg.List())
	return nil
}
