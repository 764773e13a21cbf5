package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roelfdiedericks/scrapemcp/internal/browser"
	"github.com/roelfdiedericks/scrapemcp/internal/config"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/mcpserver"
	"github.com/roelfdiedericks/scrapemcp/internal/metrics"
	"github.com/roelfdiedericks/scrapemcp/internal/paths"
	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools"
	"github.com/roelfdiedericks/scrapemcp/internal/tools/extractelements"
)

// errToolFailed is returned by one-shot commands after printing an error result
var errToolFailed = errors.New("tool call failed")

// app holds the wired components for one process
type app struct {
	cfg      *config.Config
	manager  *browser.Manager
	registry *tools.Registry
}

func newApp(g *Globals) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.BaseDir()
	if err != nil {
		return nil, err
	}

	manager := browser.NewManager(cfg.Browser, dataDir)
	svc := scraper.NewService(manager, browser.NewLoader(cfg.Browser))

	registry := tools.NewRegistry()
	err = tools.RegisterDefaults(registry, svc, tools.ToolsConfig{
		Elements: extractelements.Limits{
			DefaultLimit: cfg.Extract.DefaultLimit,
			MaxLimit:     cfg.Extract.MaxLimit,
		},
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, manager: manager, registry: registry}, nil
}

// close shuts the browser down and logs the call metrics
func (a *app) close() {
	SetShuttingDown()
	a.manager.Shutdown()
	L_object("metrics", metrics.Snapshot())
}

// call runs one tool and prints its JSON result to stdout
func (a *app) call(ctx context.Context, name string, args map[string]any) error {
	input, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if d := a.cfg.CallTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, err := a.registry.Execute(ctx, name, input)
	if err != nil {
		return err
	}
	fmt.Println(res.Text())
	if res.IsError {
		return errToolFailed
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// PageFlags are shared by the one-shot page commands
type PageFlags struct {
	Wait    int `help:"Extra seconds to wait after the page loads (-1: from config)" default:"-1"`
	Timeout int `help:"Navigation timeout in seconds (default: from config)"`
}

func (f PageFlags) args(url string) map[string]any {
	args := map[string]any{"url": url}
	if f.Wait >= 0 {
		args["wait_time"] = f.Wait
	}
	if f.Timeout > 0 {
		args["timeout_seconds"] = f.Timeout
	}
	return args
}

// ServeCmd serves the tools over stdio
type ServeCmd struct {
	Warm bool `help:"Launch the browser at startup instead of on the first call"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	L_info("scrapemcp %s starting", version)

	if c.Warm {
		if _, err := a.manager.Acquire(ctx); err != nil {
			L_warn("browser: warm start failed, will retry on first call", "error", err)
		}
	}

	srv := mcpserver.New(a.registry, mcpserver.Options{
		Name:        a.cfg.Server.Name,
		Version:     version,
		CallTimeout: a.cfg.CallTimeout(),
	})
	if err := srv.Run(ctx); err != nil {
		return err
	}
	L_info("scrapemcp stopped")
	return nil
}

// ScrapeCmd runs scrape_url once
type ScrapeCmd struct {
	PageFlags
	URL string `arg:"" help:"Page to load"`
}

func (c *ScrapeCmd) Run(g *Globals) error {
	return runOnce(g, scraper.OpScrapeURL, c.PageFlags.args(c.URL))
}

// LinksCmd runs extract_links once
type LinksCmd struct {
	PageFlags
	URL        string `arg:"" help:"Page to load"`
	SameDomain bool   `name:"same-domain" help:"Only links on the page's own host"`
}

func (c *LinksCmd) Run(g *Globals) error {
	args := c.PageFlags.args(c.URL)
	args["same_domain_only"] = c.SameDomain
	return runOnce(g, scraper.OpExtractLinks, args)
}

// ElementsCmd runs extract_elements once
type ElementsCmd struct {
	PageFlags
	URL      string `arg:"" help:"Page to load"`
	Selector string `arg:"" help:"CSS selector"`
	Limit    int    `help:"Maximum elements to return (default: from config)"`
}

func (c *ElementsCmd) Run(g *Globals) error {
	args := c.PageFlags.args(c.URL)
	args["selector"] = c.Selector
	if c.Limit != 0 {
		args["limit"] = c.Limit
	}
	return runOnce(g, scraper.OpExtractElements, args)
}

// SearchCmd runs search_text once
type SearchCmd struct {
	PageFlags
	URL   string `arg:"" help:"Page to load"`
	Query string `arg:"" help:"Word or phrase to find (case-insensitive)"`
}

func (c *SearchCmd) Run(g *Globals) error {
	args := c.PageFlags.args(c.URL)
	args["query"] = c.Query
	return runOnce(g, scraper.OpSearchText, args)
}

func runOnce(g *Globals, name string, args map[string]any) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return a.call(ctx, name, args)
}

// BrowserCmd groups browser management commands
type BrowserCmd struct {
	Download BrowserDownloadCmd `cmd:"" help:"Download (or re-download) the managed Chromium"`
	Path     BrowserPathCmd     `cmd:"" help:"Print the Chromium executable that would be used"`
}

func downloader(g *Globals) (*browser.Downloader, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.BaseDir()
	if err != nil {
		return nil, err
	}
	return browser.NewManager(cfg.Browser, dataDir).Downloader(), nil
}

// BrowserDownloadCmd forces a Chromium download
type BrowserDownloadCmd struct{}

func (c *BrowserDownloadCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := downloader(g)
	if err != nil {
		return err
	}
	L_info("browser: downloading", "dir", d.GetBinDir())
	bin, err := d.ForceDownload(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Println(bin)
	return nil
}

// BrowserPathCmd prints the resolved executable without downloading
type BrowserPathCmd struct{}

func (c *BrowserPathCmd) Run(g *Globals) error {
	if g.BrowserBin != "" {
		fmt.Println(g.BrowserBin)
		return nil
	}
	d, err := downloader(g)
	if err != nil {
		return err
	}
	bin, err := d.FindExistingBrowser()
	if err != nil {
		return fmt.Errorf("no browser in %s (run 'scrapemcp browser download'): %w", d.GetBinDir(), err)
	}
	fmt.Println(bin)
	return nil
}

// ConfigCmd groups config commands
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a config file with the defaults"`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
}

// ConfigInitCmd writes the default config
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" help:"Destination (default: ~/.scrapemcp/scrapemcp.json)" type:"path"`
	Force bool   `help:"Overwrite an existing file (a backup is kept)"`
}

func (c *ConfigInitCmd) Run(g *Globals) error {
	path := c.Path
	if path == "" {
		p, err := paths.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.WriteDefault(path, c.Force); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct {
	Format string `help:"Output format" enum:"json,toml,yaml" default:"json"`
}

func (c *ConfigShowCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	data, err := config.Encode("scrapemcp."+c.Format, cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("scrapemcp %s\n", version)
	return nil
}
