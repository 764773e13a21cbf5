package extract

import (
	"net/url"
	"testing"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!doctype html>
<html>
<head><title>  Example
  Article </title><style>body{color:red}</style></head>
<body>
  <header><h1>Site header</h1></header>
  <nav><a href="/">Home</a> <a href="/about">About</a></nav>
  <main>
    <h1>Hello world</h1>
    <p>First paragraph with <a href="/docs">a link</a>.</p>
    <img src="/logo.png" alt="logo">
    <script>console.log("nope")</script>
    <p>Second paragraph.</p>



    <p>Third paragraph.</p>
  </main>
  <aside>Sidebar ad</aside>
  <footer>Copyright</footer>
</body>
</html>`

func mustDoc(t *testing.T, html, pageURL string) *Document {
	t.Helper()
	doc, err := NewDocument(html, pageURL, "")
	require.NoError(t, err)
	return doc
}

func TestToMarkdownPrefersMain(t *testing.T) {
	doc := mustDoc(t, articlePage, "https://example.com/post")
	res := ToMarkdown(doc)

	assert.Equal(t, "https://example.com/post", res.URL)
	assert.Equal(t, "Example Article", res.Title)
	assert.Contains(t, res.Content, "# Hello world")
	assert.Contains(t, res.Content, "First paragraph")
	assert.Contains(t, res.Content, "Third paragraph.")
	assert.Contains(t, res.Content, "https://example.com/docs")

	for _, noise := range []string{"Site header", "Sidebar ad", "Copyright", "console.log", "logo.png", "color:red", "About"} {
		assert.NotContains(t, res.Content, noise)
	}
	assert.NotContains(t, res.Content, "\n\n\n")
}

func TestToMarkdownFallsBackToArticleThenBody(t *testing.T) {
	doc := mustDoc(t, `<html><body><nav>menu</nav><article><p>Article body</p></article><p>outside</p></body></html>`, "https://example.com/")
	res := ToMarkdown(doc)
	assert.Equal(t, "Article body", res.Content)

	doc = mustDoc(t, `<html><body><div><p>Just a body</p></div></body></html>`, "https://example.com/")
	res = ToMarkdown(doc)
	assert.Equal(t, "Just a body", res.Content)
}

func TestToMarkdownEmptyPage(t *testing.T) {
	for _, html := range []string{
		"",
		"<html><head><title></title></head><body></body></html>",
		"<html><body>   \n\t  </body></html>",
		"<html><body><script>var x = 1;</script><nav>only nav</nav></body></html>",
	} {
		doc := mustDoc(t, html, "https://example.com/empty")
		res := ToMarkdown(doc)
		assert.Equal(t, "", res.Content, "html: %q", html)
		assert.Equal(t, "https://example.com/empty", res.URL)
	}
}

func TestToMarkdownDoesNotMutateDocument(t *testing.T) {
	doc := mustDoc(t, articlePage, "https://example.com/post")
	_ = ToMarkdown(doc)
	links := ListLinks(doc, false)
	assert.Len(t, links, 3, "nav links must survive markdown conversion")
}

func TestToMarkdownTitleFallsBackToBrowserTitle(t *testing.T) {
	doc, err := NewDocument(`<html><body><p>x</p></body></html>`, "https://example.com/", "  Browser   Title ")
	require.NoError(t, err)
	assert.Equal(t, "Browser Title", ToMarkdown(doc).Title)
}

const linksPage = `<html><body>
<a href="/a">  Relative
   link </a>
<a href="https://example.com/b">Absolute same</a>
<a href="https://www.example.com/c">Subdomain</a>
<a href="https://other.org/d"><span>Other</span> <b>site</b></a>
<a href="mailto:x@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="tel:+123">Phone</a>
<a href="/a">Relative again</a>
<a href="https://EXAMPLE.com/e"></a>
<a href="https://example.com:8443/f">Other port</a>
<a>no href</a>
<a href="http://[::1">broken</a>
<a href="#top">Fragment</a>
</body></html>`

func TestListLinks(t *testing.T) {
	doc := mustDoc(t, linksPage, "https://example.com/start")
	links := ListLinks(doc, false)

	want := []types.ExtractedLink{
		{Href: "https://example.com/a", Text: "Relative link", IsSameDomain: true},
		{Href: "https://example.com/b", Text: "Absolute same", IsSameDomain: true},
		{Href: "https://www.example.com/c", Text: "Subdomain", IsSameDomain: false},
		{Href: "https://other.org/d", Text: "Other site", IsSameDomain: false},
		{Href: "https://example.com/a", Text: "Relative again", IsSameDomain: true},
		{Href: "https://EXAMPLE.com/e", Text: "", IsSameDomain: true},
		{Href: "https://example.com:8443/f", Text: "Other port", IsSameDomain: false},
		{Href: "https://example.com/start#top", Text: "Fragment", IsSameDomain: true},
	}
	assert.Equal(t, want, links)
}

func TestListLinksSameDomainIsSubset(t *testing.T) {
	doc := mustDoc(t, linksPage, "https://example.com/start")
	all := ListLinks(doc, false)
	same := ListLinks(doc, true)

	var expected []types.ExtractedLink
	for _, l := range all {
		if l.IsSameDomain {
			expected = append(expected, l)
		}
	}
	assert.Equal(t, expected, same)
	for _, l := range same {
		assert.True(t, l.IsSameDomain)
		assert.NotContains(t, l.Href, "www.example.com")
	}
}

func TestSameHost(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://example.com/", "https://example.com:443/x", true},
		{"http://example.com:80/", "http://example.com/x", true},
		{"https://EXAMPLE.com:443/", "http://example.com/", true},
		{"https://example.com/", "https://example.com:8443/", false},
		{"http://example.com/", "http://example.com:443/", false},
		{"https://example.com/", "https://www.example.com/", false},
		{"http://[::1]:80/", "http://[::1]/", true},
	}
	for _, tt := range tests {
		a, err := url.Parse(tt.a)
		require.NoError(t, err)
		b, err := url.Parse(tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, SameHost(a, b), "%s vs %s", tt.a, tt.b)
		assert.Equal(t, tt.want, SameHost(b, a), "%s vs %s", tt.b, tt.a)
	}
}

func TestListLinksDefaultPortIsSameDomain(t *testing.T) {
	doc := mustDoc(t, `<a href="https://example.com:443/a">a</a><a href="https://example.com:8443/b">b</a>`, "https://example.com/")
	links := ListLinks(doc, true)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com:443/a", links[0].Href)
}

func TestListLinksUsesResolvedURL(t *testing.T) {
	// the page redirected from example.com to docs.example.org
	doc := mustDoc(t, `<a href="/x">x</a><a href="https://example.com/y">y</a>`, "https://docs.example.org/guide/")
	links := ListLinks(doc, true)
	require.Len(t, links, 1)
	assert.Equal(t, "https://docs.example.org/x", links[0].Href)
}

func TestListLinksEmpty(t *testing.T) {
	doc := mustDoc(t, `<p>no links</p>`, "https://example.com/")
	links := ListLinks(doc, false)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

// elementsPage is a snapshot after the page tagged the matches of "li.item".
const elementsPage = `<html><body>
<ul id="list">
  <li class="item first" data-id="1" data-scrapemcp-match="">One <script>ignored()</script></li>
  <li class="item" data-id="2" data-price="  $9.99 " data-scrapemcp-match="">Two
     <b>bold</b></li>
  <li class="item" data-id="3" data-scrapemcp-match=""><p>Three</p><p>parts</p></li>
</ul>
<div class="price">10</div>
</body></html>`

func TestMatchedElements(t *testing.T) {
	doc := mustDoc(t, elementsPage, "https://example.com/")
	els := MatchedElements(doc, "li.item")
	require.Len(t, els, 3)

	assert.Equal(t, "li", els[0].Tag)
	assert.Equal(t, "li.item", els[0].Selector)
	assert.Equal(t, "One", els[0].Text)
	assert.Equal(t, map[string]string{"class": "item first", "data-id": "1"}, els[0].Attributes)

	assert.Equal(t, "Two bold", els[1].Text)
	assert.Equal(t, "  $9.99 ", els[1].Attributes["data-price"], "attribute values are literal")

	assert.Equal(t, "Three parts", els[2].Text)

	for i, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, els[i].Attributes["data-id"], "document order")
		assert.NotContains(t, els[i].Attributes, MatchAttr)
	}
}

func TestMatchedElementsNested(t *testing.T) {
	// selectors like "div:has(> p), p" can match an element and its child
	page := `<html><body><div data-scrapemcp-match="" id="outer"><p data-scrapemcp-match="">inner</p></div></body></html>`
	els := MatchedElements(mustDoc(t, page, "https://example.com/"), "div:has(> p), p")
	require.Len(t, els, 2)
	assert.Equal(t, "div", els[0].Tag)
	assert.Equal(t, "outer", els[0].Attributes["id"])
	assert.Equal(t, "p", els[1].Tag)
	assert.Equal(t, "inner", els[1].Text)
}

func TestMatchedElementsNoMatch(t *testing.T) {
	doc := mustDoc(t, articlePage, "https://example.com/")
	els := MatchedElements(doc, "table tr")
	assert.NotNil(t, els)
	assert.Empty(t, els)
}

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  a  ", "a"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"a   \nb\t\n", "a\nb"},
		{"a\r\n\r\n\r\n\r\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanMarkdown(tt.in), "input %q", tt.in)
	}
}
