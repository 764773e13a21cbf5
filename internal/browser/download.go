package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/launcher"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/metrics"
)

// ErrNoBrowser is returned when no binary is configured, none is installed
// and auto-download is disabled.
var ErrNoBrowser = errors.New("no chrome/chromium binary found and autoDownload is disabled")

// Downloader handles Chromium binary resolution and download
type Downloader struct {
	explicitBin  string
	binDir       string
	revision     int
	autoDownload bool
	lookPath     func() (string, bool)

	mu      sync.Mutex
	binPath string // Cached path to binary once resolved
}

// NewDownloader creates a new Chromium downloader
func NewDownloader(explicitBin, binDir string, revision int, autoDownload bool) *Downloader {
	return &Downloader{
		explicitBin:  explicitBin,
		binDir:       binDir,
		revision:     revision,
		autoDownload: autoDownload,
		lookPath:     launcher.LookPath,
	}
}

// downloadLogger routes rod's download progress to our logger; rod's default
// writes to stdout, which belongs to the protocol.
type downloadLogger struct{}

func (downloadLogger) Println(vs ...interface{}) {
	L_debug("browser: download", "msg", strings.TrimSpace(fmt.Sprintln(vs...)))
}

// Resolve returns the binary to launch.
// Order: explicit bin, system Chrome, previously downloaded, fresh download.
func (d *Downloader) Resolve(ctx context.Context) (string, error) {
	if d.explicitBin != "" {
		if _, err := os.Stat(d.explicitBin); err != nil {
			return "", fmt.Errorf("configured browser binary %s: %w", d.explicitBin, err)
		}
		return d.explicitBin, nil
	}

	if d.lookPath != nil {
		if p, ok := d.lookPath(); ok {
			L_debug("browser: using system browser", "path", p)
			return p, nil
		}
	}

	if p, err := d.FindExistingBrowser(); err == nil {
		return p, nil
	}

	if !d.autoDownload {
		return "", ErrNoBrowser
	}
	return d.EnsureBrowser(ctx)
}

// EnsureBrowser ensures Chromium is downloaded and returns the path to the binary.
// This is safe to call concurrently.
func (d *Downloader) EnsureBrowser(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binPath != "" {
		if _, err := os.Stat(d.binPath); err == nil {
			return d.binPath, nil
		}
		// Binary was removed, need to re-download
		d.binPath = ""
	}

	if err := os.MkdirAll(d.binDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create browser bin directory: %w", err)
	}

	L_info("browser: ensuring browser is available", "binDir", d.binDir, "revision", d.revision)

	b := launcher.NewBrowser()
	b.RootDir = d.binDir
	b.Logger = downloadLogger{}
	if ctx != nil {
		b.Context = ctx
	}
	if d.revision > 0 {
		b.Revision = d.revision
	}

	// no-op if already downloaded
	key := metrics.MetricStart("browser", "download")
	binPath, err := b.Get()
	metrics.MetricEnd(key)
	if err != nil {
		reason := "failed"
		if ctx != nil && ctx.Err() != nil {
			reason = "cancelled"
		}
		metrics.MetricFailWithReason("browser", "downloads", reason)
		return "", fmt.Errorf("failed to download browser: %w", err)
	}
	metrics.MetricSuccess("browser", "downloads")

	d.binPath = binPath
	L_info("browser: ready", "path", binPath)

	return binPath, nil
}

// ForceDownload downloads the browser even if it already exists
func (d *Downloader) ForceDownload(ctx context.Context) (string, error) {
	d.mu.Lock()
	d.binPath = ""
	d.mu.Unlock()

	return d.EnsureBrowser(ctx)
}

// GetBinDir returns the binary directory
func (d *Downloader) GetBinDir() string {
	return d.binDir
}

// FindExistingBrowser looks for an existing browser binary in the bin directory
func (d *Downloader) FindExistingBrowser() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binPath != "" {
		if _, err := os.Stat(d.binPath); err == nil {
			return d.binPath, nil
		}
	}

	entries, err := os.ReadDir(d.binDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("browser not downloaded: bin directory does not exist")
		}
		return "", fmt.Errorf("failed to read bin directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		candidates := []string{
			filepath.Join(d.binDir, entry.Name(), "chrome"),
			filepath.Join(d.binDir, entry.Name(), "chrome.exe"),
			filepath.Join(d.binDir, entry.Name(), "Chromium.app", "Contents", "MacOS", "Chromium"),
		}

		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				d.binPath = candidate
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("browser not downloaded: no chromium binary found in %s", d.binDir)
}
