package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/scrapemcp/internal/scraper"
	"github.com/roelfdiedericks/scrapemcp/internal/tools"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

type fakeScraper struct {
	scrapeErr   error
	panicScrape bool
	deadline    bool
}

func (f *fakeScraper) ScrapeURL(ctx context.Context, req scraper.PageRequest) (*types.ScrapeResult, error) {
	if f.panicScrape {
		panic("boom")
	}
	if f.scrapeErr != nil {
		return nil, f.scrapeErr
	}
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	return &types.ScrapeResult{URL: req.URL, Title: "Example", Content: "# Example"}, nil
}

func (f *fakeScraper) ExtractLinks(ctx context.Context, req scraper.LinksRequest) (*types.LinksResult, error) {
	return &types.LinksResult{URL: req.URL, Links: []types.ExtractedLink{}}, nil
}

func (f *fakeScraper) ExtractElements(ctx context.Context, req scraper.ElementsRequest) (*types.ElementsResult, error) {
	return &types.ElementsResult{URL: req.URL, Selector: req.Selector, Elements: []types.ExtractedElement{}}, nil
}

func (f *fakeScraper) SearchText(ctx context.Context, req scraper.SearchRequest) (*types.SearchResult, error) {
	return &types.SearchResult{URL: req.URL, Query: req.Query, Matches: []types.TextMatch{}}, nil
}

// connect serves a registry with svc over in-memory transports and returns a
// connected client session.
func connect(t *testing.T, svc *fakeScraper, opts Options) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	reg := tools.NewRegistry()
	require.NoError(t, tools.RegisterDefaults(reg, svc, tools.ToolsConfig{}))
	srv := New(reg, opts)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeScraper{}, Options{})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.ElementsMatch(t, []string{"scrape_url", "extract_links", "extract_elements", "search_text"}, names)
}

func TestCallToolSuccess(t *testing.T) {
	svc := &fakeScraper{}
	cs := connect(t, svc, Options{CallTimeout: time.Minute})

	res := call(t, cs, "scrape_url", map[string]any{"url": "https://example.com"})
	assert.False(t, res.IsError)

	var body types.ScrapeResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, "https://example.com", body.URL)
	assert.Equal(t, "Example", body.Title)
	assert.Equal(t, "# Example", body.Content)
	assert.NotNil(t, res.StructuredContent)
	assert.True(t, svc.deadline, "call timeout reaches the service")
}

func TestCallToolErrorResult(t *testing.T) {
	svc := &fakeScraper{scrapeErr: types.NavigationError("https://example.com", assert.AnError)}
	cs := connect(t, svc, Options{})

	res := call(t, cs, "scrape_url", map[string]any{"url": "https://example.com"})
	assert.True(t, res.IsError)

	var body types.ToolError
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, types.KindNavigation, body.Kind)
	assert.NotEmpty(t, body.Message)
}

func TestCallToolInvalidArguments(t *testing.T) {
	cs := connect(t, &fakeScraper{}, Options{})

	res := call(t, cs, "extract_elements", map[string]any{"url": "https://example.com"})
	assert.True(t, res.IsError)

	var body types.ToolError
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, types.KindInvalidInput, body.Kind)
}

func TestCallToolPanicRecovered(t *testing.T) {
	cs := connect(t, &fakeScraper{panicScrape: true}, Options{})

	res := call(t, cs, "scrape_url", map[string]any{"url": "https://example.com"})
	assert.True(t, res.IsError)

	var body types.ToolError
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, types.KindInternal, body.Kind)
	assert.Contains(t, body.Message, "boom")

	// the session survives
	res = call(t, cs, "extract_links", map[string]any{"url": "https://example.com"})
	assert.False(t, res.IsError)
}

func TestToCallToolResult(t *testing.T) {
	r := types.TextResult("hello")
	out := toCallToolResult(r)
	require.Len(t, out.Content, 1)
	assert.Equal(t, "hello", out.Content[0].(*mcp.TextContent).Text)
	assert.False(t, out.IsError)
	assert.Nil(t, out.StructuredContent)
}
