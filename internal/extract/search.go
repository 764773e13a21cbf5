package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxContext caps the context text of a search match, in runes.
const maxContext = 200

// inlineText lists the wrappers a match climbs out of to reach its block.
var inlineText = map[atom.Atom]bool{
	atom.Span: true, atom.B: true, atom.I: true, atom.Em: true,
	atom.Strong: true, atom.Small: true, atom.Mark: true,
}

// maxClimb bounds how many inline wrappers a match climbs out of.
const maxClimb = 5

// SearchText finds every text node containing query, ignoring case, and
// reports the enclosing block's text with the nearest link: an enclosing
// a[href], else the first a[href] inside the block. Matches are deduplicated
// by link, or by context when there is none. Script and style text is never
// searched. No match yields an empty, non-nil slice.
func SearchText(doc *Document, query string) []types.TextMatch {
	matches := make([]types.TextMatch, 0)
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || len(doc.dom.Nodes) == 0 {
		return matches
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipText[n.DataAtom] {
				return
			}
		case html.TextNode:
			if n.Parent != nil && strings.Contains(strings.ToLower(n.Data), needle) {
				m := matchAt(doc, n.Parent)
				key := m.Link
				if key == "" {
					key = m.Context
				}
				if !seen[key] {
					seen[key] = true
					matches = append(matches, m)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.dom.Nodes[0])
	return matches
}

// matchAt builds the match for a text node whose parent element is parent.
func matchAt(doc *Document, parent *html.Node) types.TextMatch {
	block := parent
	for i := 0; i < maxClimb && block.Parent != nil && inlineText[block.DataAtom]; i++ {
		block = block.Parent
	}

	m := types.TextMatch{Context: truncate(nodeText(block), maxContext)}

	a := enclosingLink(parent)
	if a == nil {
		a = firstLink(block)
	}
	if a != nil {
		if abs, ok := resolveHref(doc.URL, attr(a, "href")); ok {
			m.Link = abs.String()
		}
	}
	return m
}

func enclosingLink(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && hasAttr(n, "href") {
			return n
		}
	}
	return nil
}

func firstLink(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.A && hasAttr(c, "href") {
			return c
		}
		if a := firstLink(c); a != nil {
			return a
		}
	}
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
