package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roelfdiedericks/scrapemcp/internal/browser"
	"github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/paths"
)

// Config represents the scrapemcp configuration
type Config struct {
	Browser browser.BrowserConfig `json:"browser" toml:"browser" yaml:"browser"`
	Server  ServerConfig          `json:"server" toml:"server" yaml:"server"`
	Extract ExtractConfig         `json:"extract" toml:"extract" yaml:"extract"`
	Logging LoggingConfig         `json:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name announced to clients
	Name string `json:"name" toml:"name" yaml:"name"`
	// Upper bound for a whole tool call, browser launch included
	CallTimeout string `json:"callTimeout" toml:"callTimeout" yaml:"callTimeout"`
}

// ExtractConfig holds limits for extract_elements
type ExtractConfig struct {
	DefaultLimit int `json:"defaultLimit" toml:"defaultLimit" yaml:"defaultLimit"`
	MaxLimit     int `json:"maxLimit" toml:"maxLimit" yaml:"maxLimit"`
}

// LoggingConfig controls the stderr logger
type LoggingConfig struct {
	Level      string `json:"level" toml:"level" yaml:"level"`    // trace, debug, info, warn, error
	Format     string `json:"format" toml:"format" yaml:"format"` // text or json
	ShowCaller bool   `json:"showCaller" toml:"showCaller" yaml:"showCaller"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Browser: browser.DefaultBrowserConfig(),
		Server: ServerConfig{
			Name:        "scrapemcp",
			CallTimeout: "180s",
		},
		Extract: ExtractConfig{
			DefaultLimit: 100,
			MaxLimit:     10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the config file, then
// SCRAPEMCP_* environment variables. path may be empty, in which case the
// usual locations are searched; no file at all is not an error. Returns the
// file actually used ("" if none).
func Load(path string) (*Config, string, error) {
	cfg := Default()

	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = found
	} else {
		expanded, err := paths.ExpandTilde(path)
		if err != nil {
			return nil, "", err
		}
		path = expanded
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// Decoding onto the defaults keeps explicit false/zero values from
		// the file, which a zero-skipping merge would drop.
		if err := Decode(path, data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		logging.L_debug("config: loaded", "path", path)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Decode parses data into cfg using the format implied by path's extension.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			logging.L_warn("config: unknown keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty file decodes to io.EOF
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (use .json, .toml or .yaml)", filepath.Ext(path))
	}
}

// Encode renders cfg in the format implied by path's extension.
func Encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .json, .toml or .yaml)", filepath.Ext(path))
	}
}

// Override merges the non-zero fields of over into c, e.g. command line
// flags. Zero values in over leave c unchanged.
func (c *Config) Override(over Config) error {
	if err := mergo.Merge(c, over, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply overrides: %w", err)
	}
	return c.Validate()
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"browser.timeout":    c.Browser.Timeout,
		"browser.maxTimeout": c.Browser.MaxTimeout,
		"browser.settle":     c.Browser.Settle,
		"browser.maxWait":    c.Browser.MaxWait,
		"browser.wait":       c.Browser.Wait,
		"server.callTimeout": c.Server.CallTimeout,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
		if d < 0 {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}
	if c.Extract.DefaultLimit < 0 || c.Extract.MaxLimit < 0 {
		return fmt.Errorf("extract limits must not be negative")
	}
	if c.Extract.MaxLimit > 0 && c.Extract.DefaultLimit > c.Extract.MaxLimit {
		return fmt.Errorf("extract.defaultLimit (%d) exceeds extract.maxLimit (%d)", c.Extract.DefaultLimit, c.Extract.MaxLimit)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// CallTimeout returns the per-call bound, 0 for none
func (c *Config) CallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.CallTimeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// LogConfig converts the logging section for logging.Init
func (c *Config) LogConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Logging.Level)
	lc.ShowCaller = c.Logging.ShowCaller
	lc.JSON = strings.EqualFold(c.Logging.Format, "json")
	return lc
}

// envVar binds one environment variable to a config field
type envVar struct {
	name  string
	apply func(c *Config, v string) error
}

var envVars = []envVar{
	{"SCRAPEMCP_BROWSER_BIN", func(c *Config, v string) error { c.Browser.Bin = v; return nil }},
	{"SCRAPEMCP_BROWSER_DIR", func(c *Config, v string) error { c.Browser.Dir = v; return nil }},
	{"SCRAPEMCP_BROWSER_HEADLESS", boolEnv(func(c *Config, b bool) { c.Browser.Headless = b })},
	{"SCRAPEMCP_BROWSER_NO_SANDBOX", boolEnv(func(c *Config, b bool) { c.Browser.NoSandbox = b })},
	{"SCRAPEMCP_BROWSER_STEALTH", boolEnv(func(c *Config, b bool) { c.Browser.Stealth = b })},
	{"SCRAPEMCP_BROWSER_AUTO_DOWNLOAD", boolEnv(func(c *Config, b bool) { c.Browser.AutoDownload = b })},
	{"SCRAPEMCP_BROWSER_TIMEOUT", func(c *Config, v string) error { c.Browser.Timeout = v; return nil }},
	{"SCRAPEMCP_BROWSER_USER_AGENT", func(c *Config, v string) error { c.Browser.UserAgent = v; return nil }},
	{"SCRAPEMCP_BLOCK_PRIVATE_NETWORKS", boolEnv(func(c *Config, b bool) { c.Browser.BlockPrivateNetworks = b })},
	{"SCRAPEMCP_LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"SCRAPEMCP_LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
}

func boolEnv(set func(c *Config, b bool)) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

// applyEnv applies SCRAPEMCP_* variables found by lookup
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok {
			continue
		}
		if err := ev.apply(c, v); err != nil {
			return fmt.Errorf("%s: invalid value %q: %w", ev.name, v, err)
		}
		logging.L_trace("config: env override", "var", ev.name)
	}
	return nil
}
