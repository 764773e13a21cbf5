package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// ListLinks returns every a[href] on the page in document order, resolved
// against the page URL. Links whose resolved scheme is not http or https
// (mailto:, javascript:, tel:, data:) and hrefs that do not parse are
// skipped. Duplicates are kept.
//
// A link is same-domain when its host, port included, equals the page host
// ignoring case; a scheme's default port counts as no port. Subdomains do not
// count. With sameDomainOnly the other
// links are dropped.
func ListLinks(doc *Document, sameDomainOnly bool) []types.ExtractedLink {
	links := make([]types.ExtractedLink, 0)
	base := doc.URL

	doc.dom.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := resolveHref(base, href)
		if !ok {
			return
		}

		same := SameHost(base, abs)
		if sameDomainOnly && !same {
			return
		}

		text := ""
		if len(a.Nodes) > 0 {
			text = nodeText(a.Nodes[0])
		}
		links = append(links, types.ExtractedLink{
			Href:         abs.String(),
			Text:         text,
			IsSameDomain: same,
		})
	})

	return links
}

// resolveHref resolves href against base and reports whether the result is
// an http(s) URL with a host.
func resolveHref(base *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	switch strings.ToLower(abs.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if abs.Host == "" {
		return nil, false
	}
	return abs, true
}

// SameHost reports whether a and b name the same host and port, ignoring
// case. An explicit :80 on http or :443 on https is the same as none.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname()) && port(a) == port(b)
}

// port returns u's port, empty when it is the scheme's default.
func port(u *url.URL) string {
	p := u.Port()
	switch {
	case p == "80" && strings.EqualFold(u.Scheme, "http"),
		p == "443" && strings.EqualFold(u.Scheme, "https"):
		return ""
	}
	return p
}
