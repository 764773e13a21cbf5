package browser

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
)

// pingTimeout bounds the liveness probe run on every Acquire.
const pingTimeout = 5 * time.Second

// Session is one live Chromium process plus its CDP connection.
type Session struct {
	Browser   *rod.Browser
	CreatedAt time.Time

	launcher *launcher.Launcher
	alive    func(ctx context.Context) bool
	once     sync.Once
}

func newSession(b *rod.Browser, l *launcher.Launcher) *Session {
	s := &Session{
		Browser:   b,
		CreatedAt: time.Now(),
		launcher:  l,
	}
	s.alive = s.ping
	return s
}

// Alive reports whether the browser still answers over CDP.
func (s *Session) Alive(ctx context.Context) bool {
	if s == nil || s.alive == nil {
		return false
	}
	return s.alive(ctx)
}

// ping issues Browser.getVersion. rod panics if the CDP client is gone,
// so the call is wrapped in a recover. The caller's cancellation does not
// reach the ping; a cancelled request must not make a healthy browser look
// dead.
func (s *Session) ping(ctx context.Context) (ok bool) {
	if s.Browser == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			L_debug("browser: liveness check panicked, browser is dead", "panic", r)
			ok = false
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
	defer cancel()
	_, err := s.Browser.Context(ctx).Version()
	return err == nil
}

// PID returns the browser process id, 0 if unknown.
func (s *Session) PID() int {
	if s == nil || s.launcher == nil {
		return 0
	}
	return s.launcher.PID()
}

// close terminates the browser: CDP close, then kill the process and remove
// the temporary user data dir. Safe to call more than once.
func (s *Session) close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.Browser != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						L_debug("browser: close panicked", "panic", r)
					}
				}()
				if err := s.Browser.Close(); err != nil {
					L_debug("browser: close failed", "error", err)
				}
			}()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})
}
