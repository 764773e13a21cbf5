package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/roelfdiedericks/scrapemcp/internal/extract"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
	"github.com/ysmood/gson"
)

const (
	// closeTimeout bounds the CDP calls made while tearing a page down.
	closeTimeout = 5 * time.Second
	// snapshotTimeout bounds reading a loaded page, independent of the
	// navigation budget.
	snapshotTimeout = 15 * time.Second
)

// markMatchesJS runs a selector through the page's own CSS engine and tags
// every match. It always returns every field.
const markMatchesJS = `(sel, attr) => {
	let found;
	try {
		found = document.querySelectorAll(sel);
	} catch (e) {
		return { count: 0, error: String((e && e.message) || e), syntax: !!e && e.name === "SyntaxError" };
	}
	found.forEach((el) => el.setAttribute(attr, ""));
	return { count: found.length, error: "", syntax: false };
}`

// PageHandle is one loaded page inside its own incognito context.
type PageHandle struct {
	RequestedURL string
	ResolvedURL  string
	Title        string
	Loaded       bool

	browserCtx *rod.Browser // incognito context owning the page
	page       *rod.Page
	once       sync.Once
	closeErr   error
}

// Snapshot serializes the current DOM into an extract.Document.
func (h *PageHandle) Snapshot(ctx context.Context) (*extract.Document, error) {
	if h == nil || h.page == nil {
		return nil, fmt.Errorf("page is not open")
	}
	p := h.page.Context(ctx).Timeout(snapshotTimeout)
	defer p.CancelTimeout()
	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	// the title may have changed after scripts ran
	title := h.Title
	if info, err := p.Info(); err == nil {
		title = info.Title
	}

	doc, err := extract.NewDocument(html, h.ResolvedURL, title)
	if err != nil {
		return nil, err
	}
	L_trace("browser: snapshot", "url", h.ResolvedURL, "htmlLength", len(html))
	return doc, nil
}

// MarkMatches evaluates selector in the page and tags every match with
// extract.MatchAttr for the next Snapshot. A selector Chromium cannot parse
// is reported as invalid_selector.
func (h *PageHandle) MarkMatches(ctx context.Context, selector string) (int, error) {
	if h == nil || h.page == nil {
		return 0, fmt.Errorf("page is not open")
	}
	p := h.page.Context(ctx).Timeout(snapshotTimeout)
	defer p.CancelTimeout()
	res, err := p.Eval(markMatchesJS, selector, extract.MatchAttr)
	if err != nil {
		return 0, fmt.Errorf("failed to run selector: %w", err)
	}
	n, err := matchResult(selector, res.Value)
	if err != nil {
		return 0, err
	}
	L_trace("browser: selector matched", "url", h.ResolvedURL, "selector", selector, "count", n)
	return n, nil
}

// matchResult reads the object returned by markMatchesJS.
func matchResult(selector string, v gson.JSON) (int, error) {
	msg := v.Get("error").Str()
	if v.Get("syntax").Bool() {
		return 0, types.InvalidSelectorError(selector, errors.New(msg))
	}
	if msg != "" {
		return 0, fmt.Errorf("selector %q failed in page: %s", selector, msg)
	}
	return v.Get("count").Int(), nil
}

// Close closes the page and disposes its browsing context. Only the first
// call does anything; later calls return the first result.
func (h *PageHandle) Close() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		h.closeErr = h.close()
	})
	return h.closeErr
}

func (h *PageHandle) close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			L_debug("browser: page close panicked", "url", h.RequestedURL, "panic", r)
			err = fmt.Errorf("page close panicked: %v", r)
		}
	}()

	// Closing runs on every exit path, including after the caller's
	// context was cancelled, so it gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if h.page != nil {
		if e := h.page.Context(ctx).Close(); e != nil {
			L_debug("browser: page close failed", "url", h.RequestedURL, "error", e)
		}
	}
	if h.browserCtx != nil {
		if e := h.browserCtx.Context(ctx).Close(); e != nil {
			err = fmt.Errorf("failed to dispose browsing context: %w", e)
		}
	}
	L_trace("browser: page closed", "url", h.RequestedURL)
	return err
}
