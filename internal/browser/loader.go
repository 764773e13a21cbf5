package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// MaxSettle caps the DOM stability wait after the load event.
const MaxSettle = 3 * time.Second

const scrollToBottomJS = `() => { window.scrollTo(0, document.body ? document.body.scrollHeight : 0) }`

// LoadOptions describes one page load.
type LoadOptions struct {
	URL     string
	Timeout time.Duration // navigation budget; 0 = config default
	Wait    time.Duration // extra render wait after load, capped by config; WaitDefault = config default
}

// Loader opens pages in fresh incognito contexts on a Session.
type Loader struct {
	config   BrowserConfig
	resolver IPResolver
}

// NewLoader creates a loader using cfg for timeouts, stealth, user agent and
// the private network guard.
func NewLoader(cfg BrowserConfig) *Loader {
	return &Loader{config: cfg}
}

// WithResolver overrides the DNS resolver used by the private network guard.
func (l *Loader) WithResolver(r IPResolver) *Loader {
	l.resolver = r
	return l
}

// Validate checks rawURL without touching the browser: absolute http(s) with
// a host, and not a private target when the guard is on.
func (l *Loader) Validate(ctx context.Context, rawURL string) error {
	if _, err := ValidateURL(rawURL); err != nil {
		return types.InvalidInputCause(err, "invalid url %q: %s", rawURL, reasonOf(err))
	}
	if l.config.BlockPrivateNetworks {
		if err := ValidateURLSafety(ctx, l.resolver, strings.TrimSpace(rawURL)); err != nil {
			return types.InvalidInputCause(err, "url %q refused by blockPrivateNetworks: %s", rawURL, reasonOf(err))
		}
	}
	return nil
}

// checkResolved applies the private network guard to where the page ended
// up, so a public URL cannot redirect into a blocked network.
func (l *Loader) checkResolved(ctx context.Context, requested, resolved string) error {
	if !l.config.BlockPrivateNetworks || resolved == "" || resolved == requested {
		return nil
	}
	if _, err := ValidateURL(resolved); err != nil {
		// about:blank, chrome-error:// and the like never reached a host
		return nil
	}
	if err := ValidateURLSafety(ctx, l.resolver, resolved); err != nil {
		return types.InvalidInputCause(err, "url %q redirected to %q, refused by blockPrivateNetworks: %s", requested, resolved, reasonOf(err))
	}
	return nil
}

// Load validates the URL, opens a new incognito context and page, navigates
// and waits for the page to settle. On error nothing is left open.
func (l *Loader) Load(ctx context.Context, s *Session, opts LoadOptions) (*PageHandle, error) {
	rawURL := strings.TrimSpace(opts.URL)
	if err := l.Validate(ctx, rawURL); err != nil {
		return nil, err
	}
	if s == nil || s.Browser == nil {
		return nil, types.BrowserLaunchError(fmt.Errorf("no browser session"))
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	timeout := l.config.ClampTimeout(opts.Timeout)

	incognito, err := s.Browser.Context(ctx).Incognito()
	if err != nil {
		return nil, l.classify(ctx, rawURL, timeout, fmt.Errorf("failed to open browsing context: %w", err))
	}
	// Incognito inherits ctx; detach so Close works after cancellation.
	incognito = incognito.Context(context.Background())

	h := &PageHandle{RequestedURL: rawURL, browserCtx: incognito}

	page, err := l.newPage(incognito)
	if err != nil {
		_ = h.Close()
		return nil, l.classify(ctx, rawURL, timeout, fmt.Errorf("failed to open page: %w", err))
	}
	h.page = page

	if err := l.navigate(ctx, h, timeout, opts.Wait); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// newPage creates a page in the incognito context; a stealth page when
// configured.
func (l *Loader) newPage(b *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if l.config.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, err
	}

	ua := &proto.NetworkSetUserAgentOverride{UserAgent: l.config.ResolveUserAgent()}
	if err := page.SetUserAgent(ua); err != nil {
		L_debug("browser: set user agent failed", "error", err)
	}
	return page, nil
}

// navigate drives the page to the URL and waits: load event, optional extra
// wait, optional scroll, then a bounded DOM stability window.
func (l *Loader) navigate(ctx context.Context, h *PageHandle, timeout time.Duration, wait time.Duration) error {
	start := time.Now()
	p := h.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	L_debug("browser: navigating", "url", h.RequestedURL, "timeout", timeout.String())

	if err := p.Navigate(h.RequestedURL); err != nil {
		return l.classify(ctx, h.RequestedURL, timeout, err)
	}

	if err := p.WaitLoad(); err != nil {
		if isTimeout(ctx, err) {
			return l.classify(ctx, h.RequestedURL, timeout, err)
		}
		// Load event can fail on pages that never finish (streaming etc.)
		L_warn("browser: wait for load failed, continuing", "url", h.RequestedURL, "error", err)
	}

	if w := l.config.ClampWait(wait); w > 0 {
		L_debug("browser: extra render wait", "url", h.RequestedURL, "wait", w.String())
		t := time.NewTimer(w)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return l.classify(ctx, h.RequestedURL, timeout, ctx.Err())
		}
	}

	if l.config.ScrollToBottom {
		if _, err := p.Eval(scrollToBottomJS); err != nil {
			L_debug("browser: scroll failed", "url", h.RequestedURL, "error", err)
		}
	}

	// Settle is best effort and never fails the call.
	settle := l.config.ResolveSettle()
	if err := h.page.Context(ctx).Timeout(MaxSettle).WaitStable(settle); err != nil {
		L_trace("browser: page did not settle", "url", h.RequestedURL, "error", err)
	}
	if err := ctxErr(ctx); err != nil {
		return l.classify(ctx, h.RequestedURL, timeout, ctx.Err())
	}

	h.ResolvedURL = h.RequestedURL
	if info, err := h.page.Context(ctx).Info(); err == nil {
		if info.URL != "" {
			h.ResolvedURL = info.URL
		}
		h.Title = info.Title
	} else {
		L_debug("browser: page info failed, using requested url", "url", h.RequestedURL, "error", err)
	}
	if err := l.checkResolved(ctx, h.RequestedURL, h.ResolvedURL); err != nil {
		return err
	}
	h.Loaded = true

	L_debug("browser: page loaded", "url", h.RequestedURL, "resolved", h.ResolvedURL, "elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// classify maps a navigation failure to a ToolError. Only Chromium network
// failures count as navigation errors; anything else is internal.
func (l *Loader) classify(ctx context.Context, url string, timeout time.Duration, err error) error {
	var te *types.ToolError
	if errors.As(err, &te) {
		return te
	}
	if isTimeout(ctx, err) {
		return types.NavigationTimeoutError(url, timeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return types.CancelledError(err)
	}
	if IsNetError(err) {
		return types.NavigationError(url, err)
	}
	return types.InternalError(err)
}

// isTimeout reports whether err is a deadline, either from the page timeout
// or from the caller's context.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, context.Canceled) && ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// IsNetError reports whether err carries a Chromium net::ERR_* failure.
func IsNetError(err error) bool {
	if err == nil {
		return false
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return true
	}
	return strings.Contains(err.Error(), "net::ERR_")
}

// reasonOf extracts the human reason from a URLSafetyError.
func reasonOf(err error) string {
	var use *URLSafetyError
	if errors.As(err, &use) {
		return use.Reason
	}
	return err.Error()
}
