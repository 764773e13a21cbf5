package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// MatchAttr tags the elements a selector matched in the live page. Chromium
// does the matching, so any selector the browser accepts works, including
// ones cascadia cannot parse.
const MatchAttr = "data-scrapemcp-match"

var matched = cascadia.MustCompile("[" + MatchAttr + "]")

// MatchedElements returns the elements tagged with MatchAttr in document
// order, recording selector on each. No match yields an empty, non-nil
// slice. Attribute values are returned exactly as they appear in the DOM;
// the tag itself is left out.
func MatchedElements(doc *Document, selector string) []types.ExtractedElement {
	matches := doc.dom.FindMatcher(matched)
	elements := make([]types.ExtractedElement, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == MatchAttr {
				continue
			}
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			attrs[key] = a.Val
		}
		elements = append(elements, types.ExtractedElement{
			Selector:   selector,
			Tag:        goquery.NodeName(s),
			Text:       nodeText(n),
			Attributes: attrs,
		})
	})
	return elements
}
