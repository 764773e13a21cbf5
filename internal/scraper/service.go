// Package scraper composes the browser session, page loader and content
// extraction into the page operations.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roelfdiedericks/scrapemcp/internal/browser"
	"github.com/roelfdiedericks/scrapemcp/internal/extract"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/metrics"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Operation names, shared with the tool layer and metrics.
const (
	OpScrapeURL       = "scrape_url"
	OpExtractLinks    = "extract_links"
	OpExtractElements = "extract_elements"
	OpSearchText      = "search_text"
)

type sessionSource interface {
	Acquire(ctx context.Context) (*browser.Session, error)
}

type pageLoader interface {
	Validate(ctx context.Context, rawURL string) error
	Open(ctx context.Context, s *browser.Session, opts browser.LoadOptions) (page, error)
}

type page interface {
	MarkMatches(ctx context.Context, selector string) (int, error)
	Snapshot(ctx context.Context) (*extract.Document, error)
	Close() error
}

// browserLoader adapts *browser.Loader to pageLoader.
type browserLoader struct {
	*browser.Loader
}

func (l browserLoader) Open(ctx context.Context, s *browser.Session, opts browser.LoadOptions) (page, error) {
	h, err := l.Load(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// PageRequest is the part every operation shares.
type PageRequest struct {
	URL     string
	Timeout time.Duration // 0 = configured default
	Wait    time.Duration // extra render wait after load; browser.WaitDefault = configured default
}

// LinksRequest asks for the links of a page.
type LinksRequest struct {
	PageRequest
	SameDomainOnly bool
}

// ElementsRequest asks for the elements matching Selector. Limit <= 0 means
// no limit.
type ElementsRequest struct {
	PageRequest
	Selector string
	Limit    int
}

// SearchRequest asks where Query occurs on a page.
type SearchRequest struct {
	PageRequest
	Query string
}

// Service runs page operations. Every returned error is a *types.ToolError.
type Service struct {
	sessions sessionSource
	loader   pageLoader
	stats    *metrics.MetricsManager
}

// NewService creates a service on top of a browser manager and loader.
func NewService(m *browser.Manager, l *browser.Loader) *Service {
	return newService(m, browserLoader{l}, metrics.GetInstance())
}

func newService(sessions sessionSource, loader pageLoader, stats *metrics.MetricsManager) *Service {
	if stats == nil {
		stats = metrics.New()
	}
	return &Service{sessions: sessions, loader: loader, stats: stats}
}

// ScrapeURL loads a page and returns its readable content as markdown.
func (s *Service) ScrapeURL(ctx context.Context, req PageRequest) (*types.ScrapeResult, error) {
	var result types.ScrapeResult
	err := s.run(ctx, OpScrapeURL, req, stages{}, func(doc *extract.Document) error {
		result = extract.ToMarkdown(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractLinks loads a page and lists its links in document order.
func (s *Service) ExtractLinks(ctx context.Context, req LinksRequest) (*types.LinksResult, error) {
	var result types.LinksResult
	err := s.run(ctx, OpExtractLinks, req.PageRequest, stages{}, func(doc *extract.Document) error {
		result = types.LinksResult{
			URL:   doc.URL.String(),
			Links: extract.ListLinks(doc, req.SameDomainOnly),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractElements loads a page and returns the elements matching the
// selector, at most Limit of them when Limit > 0. The browser evaluates the
// selector, so its syntax is checked there.
func (s *Service) ExtractElements(ctx context.Context, req ElementsRequest) (*types.ElementsResult, error) {
	selector := strings.TrimSpace(req.Selector)

	check := func() error {
		if selector == "" {
			return types.InvalidInputError("selector is required")
		}
		return nil
	}
	mark := func(ctx context.Context, pg page) error {
		_, err := pg.MarkMatches(ctx, selector)
		return err
	}

	var result types.ElementsResult
	err := s.run(ctx, OpExtractElements, req.PageRequest, stages{check: check, prepare: mark}, func(doc *extract.Document) error {
		els := extract.MatchedElements(doc, selector)
		total := len(els)
		if req.Limit > 0 && len(els) > req.Limit {
			els = els[:req.Limit]
		}
		result = types.ElementsResult{
			URL:      doc.URL.String(),
			Selector: selector,
			Total:    total,
			Elements: els,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchText loads a page and returns where the query occurs, ignoring case,
// with the text around each occurrence and its nearest link.
func (s *Service) SearchText(ctx context.Context, req SearchRequest) (*types.SearchResult, error) {
	query := strings.TrimSpace(req.Query)

	check := func() error {
		if query == "" {
			return types.InvalidInputError("query is required")
		}
		return nil
	}

	var result types.SearchResult
	err := s.run(ctx, OpSearchText, req.PageRequest, stages{check: check}, func(doc *extract.Document) error {
		matches := extract.SearchText(doc, query)
		result = types.SearchResult{
			URL:     doc.URL.String(),
			Query:   query,
			Total:   len(matches),
			Matches: matches,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns the service's call metrics.
func (s *Service) Stats() map[string]*metrics.MetricSnapshot {
	return s.stats.GetSnapshot()
}

// stages are the optional per-operation hooks of a call.
type stages struct {
	// check validates arguments before the browser is touched
	check func() error
	// prepare runs on the loaded page before the snapshot
	prepare func(ctx context.Context, pg page) error
}

// run drives one call: validate, acquire, load, prepare, snapshot, extract,
// close.
func (s *Service) run(ctx context.Context, op string, req PageRequest, st stages, fn func(*extract.Document) error) error {
	c := newCall(op, req.URL)

	err := s.runPage(ctx, c, req, st, fn)

	elapsed := time.Since(c.start)
	s.stats.RecordDuration("tool", op, elapsed)
	if err != nil {
		te := toToolError(ctx, req.URL, err)
		s.stats.RecordFailure("calls", op, string(te.Kind))
		L_warn(op+": failed", "url", req.URL, "kind", te.Kind, "error", te.Message, "elapsed", elapsed.Round(time.Millisecond).String())
		return te
	}
	s.stats.RecordSuccess("calls", op)
	L_info(op+": done", "url", req.URL, "elapsed", elapsed.Round(time.Millisecond).String())
	return nil
}

func (s *Service) runPage(ctx context.Context, c *call, req PageRequest, st stages, fn func(*extract.Document) error) (err error) {
	var pg page
	defer func() {
		if r := recover(); r != nil {
			err = types.InternalError(fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			c.to(stateFailed, "error", err)
		} else {
			c.to(stateSuccess)
		}
		if pg != nil {
			if cerr := pg.Close(); cerr != nil {
				L_debug("scraper: page close failed", "call", c.id, "error", cerr)
			}
		}
		c.to(statePageClosed)
	}()

	if err := s.loader.Validate(ctx, req.URL); err != nil {
		return err
	}
	if st.check != nil {
		if err := st.check(); err != nil {
			return err
		}
	}

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	c.to(stateSessionAcquired)

	c.to(statePageLoading)
	pg, err = s.loader.Open(ctx, sess, browser.LoadOptions{
		URL:     req.URL,
		Timeout: req.Timeout,
		Wait:    req.Wait,
	})
	if err != nil {
		return err
	}
	c.to(statePageLoaded)

	if st.prepare != nil {
		if err := st.prepare(ctx, pg); err != nil {
			return snapshotError(ctx, req.URL, err)
		}
	}

	doc, err := pg.Snapshot(ctx)
	if err != nil {
		return snapshotError(ctx, req.URL, err)
	}

	c.to(stateExtracting)
	return fn(doc)
}

// snapshotError classifies a failure reading the loaded page, usually a
// page that was detached or crashed.
func snapshotError(ctx context.Context, url string, err error) error {
	var te *types.ToolError
	if ctx.Err() != nil || errors.As(err, &te) {
		return err
	}
	return types.NavigationError(url, fmt.Errorf("page became unavailable: %w", err))
}

// toToolError maps err to its caller-facing form. A finished context takes
// precedence over unclassified errors.
func toToolError(ctx context.Context, url string, err error) *types.ToolError {
	var te *types.ToolError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return types.NavigationTimeoutError(url, 0, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return types.CancelledError(err)
	}
	return types.AsToolError(err)
}

// Call states, logged at debug level.
const (
	stateIdle            = "idle"
	stateSessionAcquired = "session_acquired"
	statePageLoading     = "page_loading"
	statePageLoaded      = "page_loaded"
	stateExtracting      = "extracting"
	stateSuccess         = "success"
	stateFailed          = "failed"
	statePageClosed      = "page_closed"
)

// call tracks one operation for logging.
type call struct {
	id    string
	op    string
	url   string
	state string
	start time.Time
}

func newCall(op, url string) *call {
	c := &call{
		id:    uuid.NewString()[:8],
		op:    op,
		url:   url,
		state: stateIdle,
		start: time.Now(),
	}
	L_debug("scraper: call started", "call", c.id, "op", op, "url", url, "state", c.state)
	return c
}

func (c *call) to(state string, keyvals ...any) {
	args := append([]any{"call", c.id, "op", c.op, "from", c.state, "to", state}, keyvals...)
	c.state = state
	L_debug("scraper: state", args...)
}
