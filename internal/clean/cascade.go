package clean

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractParagraphs pulls candidate paragraphs from raw HTML in document
// order, using goquery the way the scraper package already parses pages
// for metadata.
func extractParagraphs(rawHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs, nil
}

var (
	curlyQuotes    = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`, "…", "...")
	whitespaceRune = regexp.MustCompile(`\s+`)
)

func normalizeText(s string) string {
	s = html.UnescapeString(s)
	s = curlyQuotes.Replace(s)
	s = whitespaceRune.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func dropShort(paragraphs []string, minLen int) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if len([]rune(p)) >= minLen {
			out = append(out, p)
		}
	}
	return out
}

var (
	repeatedNamePattern = regexp.MustCompile(`^([A-Z][a-z]+ [A-Z][a-z]+)\s+\1$`)
	allCapsShortPattern = regexp.MustCompile(`^[A-Z0-9 .'-]{2,40}$`)
	bylinePrefixPattern = regexp.MustCompile(`^[A-Z][a-zA-Z .'-]{1,40}:\s*$`)
)

func isByline(p string) bool {
	if repeatedNamePattern.MatchString(p) {
		return true
	}
	tokens := strings.Fields(p)
	if len(tokens) >= 2 && len(tokens) <= 3 && allCapsShortPattern.MatchString(p) && p == strings.ToUpper(p) {
		return true
	}
	if bylinePrefixPattern.MatchString(p) {
		return true
	}
	return false
}

func dropBylines(paragraphs []string) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if !isByline(p) {
			out = append(out, p)
		}
	}
	return out
}

var promoEmoji = []string{"🛍️", "🎁", "💰", "🔥", "⚡️"}

var promoPattern = regexp.MustCompile(`(?i)\b(off|save [0-9]|discount|buy now|sign up|sponsored|affiliate commission)\b`)

func isPromo(p string) bool {
	if len([]rune(p)) >= 80 {
		return false
	}
	for _, e := range promoEmoji {
		if strings.HasPrefix(p, e) {
			return true
		}
	}
	return promoPattern.MatchString(p)
}

func dropPromo(paragraphs []string) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if !isPromo(p) {
			out = append(out, p)
		}
	}
	return out
}

var (
	followBrandPattern = regexp.MustCompile(`(?i)^follow [a-z0-9 .'-]+ (on|at)\b`)
	fundingPattern      = regexp.MustCompile(`(?i)^funding:`)
	footerAddressLine   = regexp.MustCompile(`^[0-9]{1,5} [A-Za-z0-9 .,'-]{0,60}$`)
)

func isBoilerplate(p string) bool {
	return followBrandPattern.MatchString(p) || fundingPattern.MatchString(p) ||
		(len([]rune(p)) < 60 && footerAddressLine.MatchString(p))
}

func dropBoilerplate(paragraphs []string) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if !isBoilerplate(p) {
			out = append(out, p)
		}
	}
	return out
}

func dropRelated(paragraphs []string) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if !strings.HasPrefix(p, "Related:") {
			out = append(out, p)
		}
	}
	return out
}

func collapseDuplicates(paragraphs []string) []string {
	out := paragraphs[:0:0]
	for _, p := range paragraphs {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}
