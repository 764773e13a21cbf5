package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/metrics"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Manager owns at most one browser session. The session is launched lazily
// on first Acquire, reused while it answers pings and replaced when it does
// not.
type Manager struct {
	config     BrowserConfig
	dataDir    string
	downloader *Downloader

	mu       sync.Mutex
	session  *Session
	launches int
	closed   bool

	// launch starts a new session; replaced in tests
	launch func(ctx context.Context) (*Session, error)
}

// NewManager creates a manager. dataDir is where downloaded browsers live
// unless cfg.Dir overrides it.
func NewManager(cfg BrowserConfig, dataDir string) *Manager {
	binDir := cfg.ResolveBinDir(dataDir)
	m := &Manager{
		config:     cfg,
		dataDir:    dataDir,
		downloader: NewDownloader(cfg.Bin, binDir, cfg.Revision, cfg.AutoDownload),
	}
	m.launch = m.launchBrowser

	L_debug("browser: manager initialized",
		"binDir", binDir,
		"autoDownload", cfg.AutoDownload,
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return m
}

// Acquire returns the live session, launching one if needed. Launch
// failures are reported as browser_launch and leave the manager empty.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if m == nil {
		return nil, types.BrowserLaunchError(fmt.Errorf("browser manager not initialized"))
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, types.BrowserLaunchError(fmt.Errorf("browser manager is shut down"))
	}

	if s := m.session; s != nil {
		if s.Alive(ctx) {
			return s, nil
		}
		// the request went away mid-check; keep the session for the next one
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		L_warn("browser: session not responding, relaunching", "pid", s.PID(), "age", time.Since(s.CreatedAt).Round(time.Second).String())
		m.session = nil
		go s.close()
	}

	start := time.Now()
	s, err := m.launch(ctx)
	if err != nil {
		metrics.MetricInc("browser", "launch_failures")
		if te := types.AsToolError(err); te.Kind == types.KindCancelled {
			return nil, te
		}
		return nil, types.BrowserLaunchError(err)
	}

	m.session = s
	m.launches++
	metrics.MetricInc("browser", "launches")
	metrics.MetricDuration("browser", "launch", time.Since(start))
	L_info("browser: session ready", "pid", s.PID(), "launches", m.launches, "elapsed", time.Since(start).Round(time.Millisecond).String())
	return s, nil
}

// launchBrowser resolves a binary, starts Chromium and connects over CDP.
func (m *Manager) launchBrowser(ctx context.Context) (*Session, error) {
	binPath, err := m.downloader.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve browser binary: %w", err)
	}

	L_debug("browser: launching browser", "bin", binPath, "headless", m.config.Headless)

	// ctx only bounds startup; the process outlives the request
	l := launcher.New().
		Context(ctx).
		Bin(binPath).
		Headless(m.config.Headless).
		Set(flags.Flag("disable-dev-shm-usage")). // For Docker/limited memory
		Set(flags.Flag("user-agent"), m.config.ResolveUserAgent())

	// Use 1920x1080 so headed sites show full desktop layout
	if !m.config.Headless {
		l = l.Set(flags.Flag("window-size"), "1920,1080")
	}

	if m.config.Stealth {
		l = l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	}

	// Needed for Docker/root
	if m.config.NoSandbox || os.Geteuid() == 0 {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	// Rod defaults to LaptopWithMDPIScreen which constrains the viewport
	b = b.DefaultDevice(m.config.ResolveDevice())

	L_debug("browser: launched", "controlURL", controlURL, "pid", l.PID())
	return newSession(b, l), nil
}

// Shutdown terminates the browser if one is running. Safe to call with no
// session and safe to call twice. Later Acquire calls fail.
func (m *Manager) Shutdown() {
	if m == nil {
		return
	}
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.closed = true
	m.mu.Unlock()

	if s == nil {
		return
	}
	L_info("browser: shutting down", "pid", s.PID())
	s.close()
}

// Downloader returns the downloader
func (m *Manager) Downloader() *Downloader {
	if m == nil {
		return nil
	}
	return m.downloader
}

// ManagerStatus describes the session owned by a Manager
type ManagerStatus struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	Launches  int       `json:"launches"`
}

// Status reports whether a session is held, when it was created and how many
// launches have happened so far.
func (m *Manager) Status() ManagerStatus {
	if m == nil {
		return ManagerStatus{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st := ManagerStatus{Launches: m.launches}
	if m.session != nil {
		st.Running = true
		st.PID = m.session.PID()
		st.CreatedAt = m.session.CreatedAt
	}
	return st
}

// ctxErr converts a finished context into the matching ToolError.
func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return types.NavigationTimeoutError("", 0, ctx.Err())
	default:
		return types.CancelledError(ctx.Err())
	}
}
