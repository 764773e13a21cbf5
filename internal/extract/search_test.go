package extract

import (
	"strings"
	"testing"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobsPage = `<html><body>
<script>var t = "Senior Engineer";</script>
<ul>
  <li><a href="/jobs/1"><span>Senior <b>Engineer</b></span></a> - Berlin</li>
  <li><a href="/jobs/1">senior engineer (apply)</a></li>
  <li><p>Staff engineer, <strong>remote</strong> <a href="https://other.org/2">details</a></p></li>
  <li><p>Engineer without link</p></li>
  <li><p>Engineer without link</p></li>
  <li><a href="mailto:jobs@example.com">Email an engineer</a></li>
</ul>
</body></html>`

func TestSearchText(t *testing.T) {
	doc := mustDoc(t, jobsPage, "https://example.com/careers")
	matches := SearchText(doc, "ENGINEER")

	assert.Equal(t, []types.TextMatch{
		{Context: "Senior Engineer", Link: "https://example.com/jobs/1"},
		{Context: "Staff engineer, remote details", Link: "https://other.org/2"},
		{Context: "Engineer without link"},
		{Context: "Email an engineer"},
	}, matches)
}

func TestSearchTextClimbsOutOfInlineWrappers(t *testing.T) {
	page := `<div><p>The <em><strong>needle</strong></em> is here</p></div>`
	matches := SearchText(mustDoc(t, page, "https://example.com/"), "needle")
	require.Len(t, matches, 1)
	assert.Equal(t, "The needle is here", matches[0].Context)
	assert.Empty(t, matches[0].Link)
}

func TestSearchTextNoMatch(t *testing.T) {
	doc := mustDoc(t, jobsPage, "https://example.com/")
	for _, q := range []string{"astronaut", "var t", "   "} {
		matches := SearchText(doc, q)
		assert.NotNil(t, matches, q)
		assert.Empty(t, matches, q)
	}
}

func TestSearchTextTruncatesContext(t *testing.T) {
	long := strings.Repeat("word ", 100) + "needle"
	matches := SearchText(mustDoc(t, "<p>"+long+"</p>", "https://example.com/"), "needle")
	require.Len(t, matches, 1)
	assert.LessOrEqual(t, len([]rune(matches[0].Context)), maxContext)
}
