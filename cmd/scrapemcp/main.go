// scrapemcp serves headless-browser page tools (scrape_url, extract_links,
// extract_elements) to MCP clients over stdio.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/scrapemcp/internal/config"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	ConfigFile   string `name:"config" short:"c" help:"Config file (.json, .toml or .yaml). Default: ./scrapemcp.* then ~/.scrapemcp/scrapemcp.*" type:"path"`
	LogLevel     string `name:"log-level" help:"Log level: trace, debug, info, warn, error"`
	LogFormat    string `name:"log-format" help:"Log format: text or json"`
	Headed       bool   `help:"Show the browser window"`
	NoSandbox    bool   `name:"no-sandbox" help:"Disable the Chromium sandbox"`
	BrowserBin   string `name:"browser-bin" help:"Chromium executable to use instead of the managed download" type:"path"`
	BlockPrivate bool   `name:"block-private" help:"Refuse loopback, private network and cloud metadata URLs, including redirects to them"`
}

// CLI is the command tree
type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" default:"1" help:"Serve the MCP tools over stdio (default)"`
	Scrape   ScrapeCmd   `cmd:"" help:"Load a URL and print its content as markdown (JSON)"`
	Links    LinksCmd    `cmd:"" help:"Load a URL and print its links (JSON)"`
	Elements ElementsCmd `cmd:"" help:"Load a URL and print the elements matching a CSS selector (JSON)"`
	Search   SearchCmd   `cmd:"" help:"Load a URL and print where a word or phrase occurs (JSON)"`
	Browser  BrowserCmd  `cmd:"" help:"Manage the Chromium download"`
	Config   ConfigCmd   `cmd:"" help:"Manage the config file"`
	Version  VersionCmd  `cmd:"" help:"Print the version"`
}

// load reads the config and applies command line overrides
func (g *Globals) load() (*config.Config, error) {
	cfg, path, err := config.Load(g.ConfigFile)
	if err != nil {
		return nil, err
	}

	var over config.Config
	over.Logging.Level = g.LogLevel
	over.Logging.Format = g.LogFormat
	over.Browser.Bin = g.BrowserBin
	over.Browser.NoSandbox = g.NoSandbox
	over.Browser.BlockPrivateNetworks = g.BlockPrivate
	if err := cfg.Override(over); err != nil {
		return nil, err
	}
	// false is a value here, so this bypasses the merge
	if g.Headed {
		cfg.Browser.Headless = false
	}

	Init(cfg.LogConfig())
	if path != "" {
		L_debug("config: using file", "path", path)
	}
	L_object("config", cfg)
	return cfg, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("scrapemcp"),
		kong.Description("MCP server that renders pages in headless Chromium and returns markdown, links or selected elements."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
