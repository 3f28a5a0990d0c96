package crawl

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/PuerkitoBio/goquery"
)

// paragraphCount reports how many <p> elements the cleaner's own
// extraction pass would see. Used to decide whether the raw HTML needs
// the go-readability fallback before handing it to clean.Clean.
func paragraphCount(rawHTML string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return 0
	}
	return doc.Find("p").Length()
}

// extractViaReadability runs Mozilla Readability over rawHTML and
// re-wraps its extracted text as synthetic paragraphs (one per blank-line
// separated block) so the result can still pass through clean.Clean's
// ordinary paragraph-level filters. Used only when the raw HTML carries no
// <p> tags at all, e.g. client-rendered pages the cleaner cannot parse
// directly.
func extractViaReadability(rawHTML, articleURL string) (string, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", err
	}

	blocks := strings.Split(article.TextContent, "\n")
	var b strings.Builder
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(block)
		b.WriteString("</p>\n")
	}
	return b.String(), nil
}
