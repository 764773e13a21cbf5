// Package logging provides global logging functions for scrapemcp.
// Use dot import to access L_info, L_error, etc. directly.
//
// All output goes to stderr: stdout belongs to the MCP stdio transport.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Log levels
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	logger *log.Logger
	mu     sync.Mutex

	// Global shutdown flag - checked by components before operations
	shuttingDown int32
)

// Config holds logging configuration
type Config struct {
	Level      int
	TimeFormat string
	ShowCaller bool
	JSON       bool      // emit one JSON object per line instead of text
	Output     io.Writer // defaults to os.Stderr
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		TimeFormat: "15:04:05",
		ShowCaller: true,
	}
}

// ParseLevel maps a level name to one of the Level constants.
// Unknown names fall back to LevelInfo.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Init (re)configures the global logger. Safe to call multiple times; the
// last call wins, so logging before Init uses the defaults.
func Init(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.ShowCaller,
		CallerOffset:    2, // Skip two frames (logMsg -> L_* -> caller)
		Prefix:          "scrapemcp",
	})
	if cfg.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	l.SetLevel(charmLevel(cfg.Level))

	mu.Lock()
	logger = l
	mu.Unlock()
}

// charmLevel maps our levels to charmbracelet levels
func charmLevel(level int) log.Level {
	switch level {
	case LevelTrace, LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError, LevelFatal:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ensureInit ensures logger is initialized with defaults if not already
func ensureInit() *log.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l != nil {
		return l
	}
	Init(nil)
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Logger returns the underlying charmbracelet logger.
func Logger() *log.Logger {
	return ensureInit()
}

// Slog returns a *slog.Logger writing through the global logger, for
// libraries that take a standard structured logger.
func Slog() *slog.Logger {
	return slog.New(ensureInit())
}

// hasFmtVerb checks if a string contains printf-style format verbs
func hasFmtVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '%' {
			next := s[i+1]
			// Common format verbs: v, s, d, f, t, p, etc. Also %% is escape
			if next != '%' && strings.ContainsRune("vsdtfgeopqxXbcUT+#", rune(next)) {
				return true
			}
		}
	}
	return false
}

// logMsg handles the flexible logging format:
// - logMsg(level, "message") -> simple
// - logMsg(level, "value is %d", 42) -> printf
// - logMsg(level, "loaded", "key", val, ...) -> structured
func logMsg(level log.Level, msg string, args ...interface{}) {
	l := ensureInit()

	var finalMsg string
	var keyvals []interface{}

	if len(args) == 0 {
		finalMsg = msg
	} else if hasFmtVerb(msg) {
		finalMsg = fmt.Sprintf(msg, args...)
	} else {
		finalMsg = msg
		keyvals = args
	}

	switch level {
	case log.DebugLevel:
		l.Debug(finalMsg, keyvals...)
	case log.InfoLevel:
		l.Info(finalMsg, keyvals...)
	case log.WarnLevel:
		l.Warn(finalMsg, keyvals...)
	case log.ErrorLevel:
		l.Error(finalMsg, keyvals...)
	case log.FatalLevel:
		l.Fatal(finalMsg, keyvals...)
	}
}

// L_trace logs at trace level (mapped to debug)
func L_trace(msg string, args ...interface{}) {
	logMsg(log.DebugLevel, msg, args...)
}

// L_debug logs at debug level
func L_debug(msg string, args ...interface{}) {
	logMsg(log.DebugLevel, msg, args...)
}

// L_info logs at info level
func L_info(msg string, args ...interface{}) {
	logMsg(log.InfoLevel, msg, args...)
}

// L_warn logs at warn level
func L_warn(msg string, args ...interface{}) {
	logMsg(log.WarnLevel, msg, args...)
}

// L_error logs at error level
func L_error(msg string, args ...interface{}) {
	logMsg(log.ErrorLevel, msg, args...)
}

// L_fatal logs at fatal level and exits
func L_fatal(msg string, args ...interface{}) {
	logMsg(log.FatalLevel, msg, args...)
}

// L_object logs a value as indented JSON at debug level
func L_object(msg string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logMsg(log.DebugLevel, msg, "object", fmt.Sprintf("%+v", v))
		return
	}
	logMsg(log.DebugLevel, msg+"\n"+string(data))
}

// SetLevel changes the log level at runtime
func SetLevel(level int) {
	ensureInit().SetLevel(charmLevel(level))
}

// SetShuttingDown marks the application as shutting down
func SetShuttingDown() {
	if atomic.CompareAndSwapInt32(&shuttingDown, 0, 1) {
		L_info("Application shutting down")
	}
}

// IsShuttingDown returns true if application is shutting down
func IsShuttingDown() bool {
	return atomic.LoadInt32(&shuttingDown) == 1
}

// L_elapsed logs with elapsed time since start
func L_elapsed(start time.Time, msg string, args ...interface{}) {
	elapsed := time.Since(start)
	args = append(args, "elapsed", elapsed.String())
	logMsg(log.InfoLevel, msg, args...)
}
