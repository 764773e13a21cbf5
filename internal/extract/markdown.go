package extract

import (
	"regexp"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// noiseSelector matches elements that are never part of a page's readable
// content. Images are dropped too; the output is text.
const noiseSelector = "script, style, noscript, template, nav, footer, header, aside, iframe, svg, img, picture, video, audio, canvas, object, embed"

// contentRoots are tried in order; the first match is converted.
var contentRoots = []string{"main", "article", "body"}

var (
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

// ToMarkdown renders the readable content of doc as markdown. It never
// fails: a page with no text yields an empty Content.
func ToMarkdown(doc *Document) types.ScrapeResult {
	result := types.ScrapeResult{
		URL:   doc.URL.String(),
		Title: pageTitle(doc),
	}

	dom, err := doc.clone()
	if err != nil {
		L_warn("extract: reparse failed", "url", result.URL, "error", err)
		result.Content = readabilityText(doc)
		return result
	}

	dom.Find(noiseSelector).Remove()

	root := pickContentRoot(dom)
	if root == nil || strings.TrimSpace(root.Text()) == "" {
		L_debug("extract: no text content", "url", result.URL)
		return result
	}

	fragment, err := goquery.OuterHtml(root)
	if err != nil {
		L_warn("extract: serialize failed, falling back to readability", "url", result.URL, "error", err)
		result.Content = readabilityText(doc)
		return result
	}

	md, err := htmltomd.ConvertString(fragment, converter.WithDomain(doc.URL.String()))
	if err != nil {
		L_warn("extract: html-to-markdown failed, falling back to readability", "url", result.URL, "error", err)
		result.Content = readabilityText(doc)
		return result
	}

	result.Content = cleanMarkdown(md)
	if result.Content == "" {
		result.Content = readabilityText(doc)
	}
	return result
}

// pickContentRoot returns the first of main, article, body present in dom,
// or the document element itself.
func pickContentRoot(dom *goquery.Document) *goquery.Selection {
	for _, sel := range contentRoots {
		if s := dom.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	if s := dom.Children().First(); s.Length() > 0 {
		return s
	}
	return nil
}

// pageTitle prefers the document's <title>, then the browser-reported title,
// then readability's guess.
func pageTitle(doc *Document) string {
	if t := collapseSpace(doc.dom.Find("title").First().Text()); t != "" {
		return t
	}
	if doc.Title != "" {
		return doc.Title
	}
	article, err := readability.FromReader(strings.NewReader(doc.HTML), doc.URL)
	if err != nil {
		return ""
	}
	return collapseSpace(article.Title)
}

// readabilityText is the last-resort plain-text extraction.
func readabilityText(doc *Document) string {
	article, err := readability.FromReader(strings.NewReader(doc.HTML), doc.URL)
	if err != nil {
		L_debug("extract: readability failed", "url", doc.URL.String(), "error", err)
		return ""
	}
	return cleanMarkdown(article.TextContent)
}

// cleanMarkdown trims trailing blanks per line, folds runs of blank lines
// and trims the whole text.
func cleanMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingSpaces.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
