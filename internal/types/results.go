package types

// ScrapeResult is the readable-text rendition of a page.
// URL is the resolved URL after redirects.
type ScrapeResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractedLink is one anchor found on a page.
type ExtractedLink struct {
	Href         string `json:"href"`
	Text         string `json:"text"`
	IsSameDomain bool   `json:"is_same_domain"`
}

// ExtractedElement is one element matched by a CSS selector.
type ExtractedElement struct {
	Selector   string            `json:"selector"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
}

// LinksResult wraps the links of a page in document order.
type LinksResult struct {
	URL   string          `json:"url"`
	Links []ExtractedLink `json:"links"`
}

// ElementsResult wraps the matched elements in document order. Total is the
// number of matches before any limit was applied.
type ElementsResult struct {
	URL      string             `json:"url"`
	Selector string             `json:"selector"`
	Total    int                `json:"total"`
	Elements []ExtractedElement `json:"elements"`
}

// TextMatch is one place a search query occurs on a page. Context is the
// text of the enclosing block; Link is the nearest http(s) link, if any.
type TextMatch struct {
	Context string `json:"context"`
	Link    string `json:"link,omitempty"`
}

// SearchResult wraps the matches of a text search in document order, one per
// distinct link (or context when there is no link).
type SearchResult struct {
	URL     string      `json:"url"`
	Query   string      `json:"query"`
	Total   int         `json:"total"`
	Matches []TextMatch `json:"matches"`
}
