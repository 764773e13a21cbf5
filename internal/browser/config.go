package browser

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/devices"
)

// DefaultUserAgent is a desktop Chrome user agent applied to every page
// unless overridden in config.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// WaitDefault as a requested wait selects BrowserConfig.Wait.
const WaitDefault time.Duration = -1

// BrowserConfig holds browser configuration
type BrowserConfig struct {
	// Browser data directory (empty = ~/.scrapemcp/browser)
	Dir string `json:"dir" toml:"dir" yaml:"dir"`
	// Explicit Chrome/Chromium binary
	Bin string `json:"bin" toml:"bin" yaml:"bin"`
	// Download Chromium if no binary is found
	AutoDownload bool `json:"autoDownload" toml:"autoDownload" yaml:"autoDownload"`
	// Chromium revision for downloads (0 = rod default)
	Revision int `json:"revision" toml:"revision" yaml:"revision"`
	// Run in headless mode
	Headless bool `json:"headless" toml:"headless" yaml:"headless"`
	// Disable sandbox (needed for Docker/root)
	NoSandbox bool `json:"noSandbox" toml:"noSandbox" yaml:"noSandbox"`
	// Default navigation timeout (e.g., "30s")
	Timeout string `json:"timeout" toml:"timeout" yaml:"timeout"`
	// Upper bound for per-call timeouts
	MaxTimeout string `json:"maxTimeout" toml:"maxTimeout" yaml:"maxTimeout"`
	// DOM stability window after load
	Settle string `json:"settle" toml:"settle" yaml:"settle"`
	// Extra render wait when a call gives no wait_time
	Wait string `json:"wait" toml:"wait" yaml:"wait"`
	// Upper bound for per-call wait_time
	MaxWait string `json:"maxWait" toml:"maxWait" yaml:"maxWait"`
	// Use go-rod/stealth pages
	Stealth bool `json:"stealth" toml:"stealth" yaml:"stealth"`
	// Device emulation: "clear", "laptop", "iphone-x", etc.
	Device string `json:"device" toml:"device" yaml:"device"`
	// Empty = DefaultUserAgent
	UserAgent string `json:"userAgent" toml:"userAgent" yaml:"userAgent"`
	// Reject loopback/private/metadata targets
	BlockPrivateNetworks bool `json:"blockPrivateNetworks" toml:"blockPrivateNetworks" yaml:"blockPrivateNetworks"`
	// Scroll once after load to trigger lazy content
	ScrollToBottom bool `json:"scrollToBottom" toml:"scrollToBottom" yaml:"scrollToBottom"`
}

// DefaultBrowserConfig returns the default browser configuration
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Dir:                  "", // Will resolve to ~/.scrapemcp/browser
		AutoDownload:         true,
		Headless:             true,
		NoSandbox:            false,
		Timeout:              "30s",
		MaxTimeout:           "120s",
		Settle:               "500ms",
		Wait:                 "2s",
		MaxWait:              "30s",
		Stealth:              true,
		Device:               "clear", // No viewport emulation, fills window
		UserAgent:            DefaultUserAgent,
		BlockPrivateNetworks: false,
		ScrollToBottom:       true,
	}
}

// ResolveDir returns the browser directory, defaulting to <dataDir>/browser
func (c *BrowserConfig) ResolveDir(dataDir string) string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(dataDir, "browser")
}

// ResolveBinDir returns the chromium binary directory
func (c *BrowserConfig) ResolveBinDir(dataDir string) string {
	return filepath.Join(c.ResolveDir(dataDir), "bin")
}

// ResolveTimeout returns the default navigation timeout
func (c *BrowserConfig) ResolveTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// ResolveMaxTimeout returns the cap for per-call timeouts
func (c *BrowserConfig) ResolveMaxTimeout() time.Duration {
	max := parseDurationOr(c.MaxTimeout, 120*time.Second)
	if def := c.ResolveTimeout(); max < def {
		return def
	}
	return max
}

// ResolveSettle returns the DOM stability window, capped at 3s
func (c *BrowserConfig) ResolveSettle() time.Duration {
	d := parseDurationOr(c.Settle, 500*time.Millisecond)
	if d > MaxSettle {
		return MaxSettle
	}
	return d
}

// ResolveMaxWait returns the cap for per-call extra waits
func (c *BrowserConfig) ResolveMaxWait() time.Duration {
	return parseDurationOr(c.MaxWait, 30*time.Second)
}

// ResolveUserAgent returns the configured user agent or the desktop default
func (c *BrowserConfig) ResolveUserAgent() string {
	if strings.TrimSpace(c.UserAgent) == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// ClampTimeout picks the per-call timeout: requested if positive, else the
// default, never above the configured maximum.
func (c *BrowserConfig) ClampTimeout(requested time.Duration) time.Duration {
	t := requested
	if t <= 0 {
		t = c.ResolveTimeout()
	}
	if max := c.ResolveMaxTimeout(); t > max {
		t = max
	}
	return t
}

// ResolveWait returns the extra render wait used when a call gives none
func (c *BrowserConfig) ResolveWait() time.Duration {
	return parseDurationOr(c.Wait, 0)
}

// ClampWait bounds a per-call extra wait to [0, maxWait]. WaitDefault picks
// the configured default.
func (c *BrowserConfig) ClampWait(requested time.Duration) time.Duration {
	if requested == WaitDefault {
		requested = c.ResolveWait()
	}
	if requested <= 0 {
		return 0
	}
	if max := c.ResolveMaxWait(); requested > max {
		return max
	}
	return requested
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ResolveDevice returns the devices.Device for the configured device name.
// Supported friendly names:
//   - "clear" - No emulation, browser fills window (default)
//   - "laptop" or "laptop-mdpi" - LaptopWithMDPIScreen (1280x800)
//   - "laptop-hidpi" - LaptopWithHiDPIScreen (1440x900, 2x DPI)
//   - "laptop-touch" - LaptopWithTouch (1280x950)
//   - "iphone-x" - iPhoneX
//   - "iphone-8" - iPhone6or7or8
//   - "ipad" - iPad
//   - "ipad-pro" - iPadPro
//   - "pixel-2" - Pixel2
//   - "galaxy-s5" - GalaxyS5
//   - "nexus-7" - Nexus7 (tablet)
func (c *BrowserConfig) ResolveDevice() devices.Device {
	switch strings.ToLower(c.Device) {
	case "", "clear":
		return devices.Clear
	case "laptop", "laptop-mdpi":
		return devices.LaptopWithMDPIScreen
	case "laptop-hidpi":
		return devices.LaptopWithHiDPIScreen
	case "laptop-touch":
		return devices.LaptopWithTouch
	case "iphone-x":
		return devices.IPhoneX
	case "iphone-8":
		return devices.IPhone6or7or8
	case "ipad":
		return devices.IPad
	case "ipad-pro":
		return devices.IPadPro
	case "pixel-2":
		return devices.Pixel2
	case "galaxy-s5":
		return devices.GalaxyS5
	case "nexus-7":
		return devices.Nexus7
	default:
		// Unknown device, default to clear
		return devices.Clear
	}
}
