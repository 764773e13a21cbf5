// Package extract turns a rendered page snapshot into the output shapes the
// tools return: readable markdown, links and CSS-selected elements.
//
// Everything here is pure: no browser, no network. Normalizers never mutate
// the Document they are given.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a DOM snapshot of a loaded page.
type Document struct {
	URL   *url.URL // resolved URL after redirects
	Title string   // title reported by the browser
	HTML  string   // serialized DOM

	dom *goquery.Document
}

// NewDocument parses rawHTML and records the page's resolved URL and title.
func NewDocument(rawHTML, pageURL, title string) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return &Document{
		URL:   u,
		Title: collapseSpace(title),
		HTML:  rawHTML,
		dom:   dom,
	}, nil
}

// clone returns a fresh parse of the snapshot that callers may modify.
func (d *Document) clone() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(d.HTML))
}

// collapseSpace trims s and folds every whitespace run into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// skipText lists elements whose text never counts as visible content.
var skipText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// blockText lists elements that break words apart in rendered text.
var blockText = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.Option: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// nodeText returns the whitespace-collapsed text under n, ignoring script
// and style content. Block elements separate words; inline ones do not.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipText[n.DataAtom] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockText[n.DataAtom]
		if block {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
	}
	walk(n)
	return collapseSpace(sb.String())
}
