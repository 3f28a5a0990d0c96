package crawl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bannedURLSubstrings are matched case-insensitively against a candidate
// image URL; any match disqualifies the candidate regardless of priority.
var bannedURLSubstrings = []string{
	"favicon", "logo", "placeholder", "spacer", "blank",
	"icon", "icons", "sprite", "badge", "pixel",
}

// selectImageCandidates walks the priority order from the crawler's image
// selection rule and returns every candidate URL (resolved against
// articleURL) that passes the URL-shape gate, in priority order, first
// match first. Content-Type and byte-size gates are download-time gates:
// they're checked later, against each candidate's downloaded body, by
// imageDownloader.Download — a candidate failing one of those gates doesn't end
// selection, it just falls through to the next candidate in this list.
func selectImageCandidates(doc *goquery.Document, articleURL string) []string {
	base, err := url.Parse(articleURL)
	if err != nil {
		return nil
	}

	var candidates []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		candidates = append(candidates, u)
	}

	for _, u := range allAttrs(doc, base, "meta[property='og:image']", "content") {
		add(u)
	}
	for _, u := range allAttrs(doc, base, "meta[name='twitter:image']", "content") {
		add(u)
	}
	for _, u := range allAttrs(doc, base, "link[rel='image_src']", "href") {
		add(u)
	}
	if u, ok := largestSrcsetCandidate(doc, base); ok {
		add(u)
	}
	for _, u := range allAttrs(doc, base, "article img, figure img, div.article img", "src") {
		add(u)
	}
	for _, u := range allAttrs(doc, base, "img", "src") {
		add(u)
	}
	return candidates
}

func allAttrs(doc *goquery.Document, base *url.URL, selector, attr string) []string {
	var found []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		raw, exists := s.Attr(attr)
		if !exists || strings.TrimSpace(raw) == "" {
			return
		}
		resolved, good := resolveAndGate(base, raw)
		if !good {
			return
		}
		found = append(found, resolved)
	})
	return found
}

// srcsetEntry is one parsed "URL WIDTHw" or "URL DENSITYx" tuple.
type srcsetEntry struct {
	url     string
	width   int
	density float64
}

func largestSrcsetCandidate(doc *goquery.Document, base *url.URL) (string, bool) {
	var best srcsetEntry
	var found bool

	doc.Find("picture source[srcset]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, _ := s.Attr("srcset")
		for _, entry := range parseSrcset(raw) {
			resolved, good := resolveAndGate(base, entry.url)
			if !good {
				continue
			}
			entry.url = resolved
			if !found || isLargerCandidate(entry, best) {
				best = entry
				found = true
			}
		}
		return true
	})

	if !found {
		return "", false
	}
	return best.url, true
}

func isLargerCandidate(a, b srcsetEntry) bool {
	if a.width != b.width {
		return a.width > b.width
	}
	return a.density > b.density
}

func parseSrcset(raw string) []srcsetEntry {
	var entries []srcsetEntry
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		entry := srcsetEntry{url: fields[0], density: 1.0}
		if len(fields) > 1 {
			descriptor := fields[1]
			switch {
			case strings.HasSuffix(descriptor, "w"):
				if n, err := strconv.Atoi(strings.TrimSuffix(descriptor, "w")); err == nil {
					entry.width = n
				}
			case strings.HasSuffix(descriptor, "x"):
				if f, err := strconv.ParseFloat(strings.TrimSuffix(descriptor, "x"), 64); err == nil {
					entry.density = f
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// resolveAndGate resolves raw against base and applies the URL-shape gate
// (banned substrings). It does not check Content-Type or size; those
// require the downloaded body.
func resolveAndGate(base *url.URL, raw string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref).String()
	lower := strings.ToLower(resolved)
	for _, bad := range bannedURLSubstrings {
		if strings.Contains(lower, bad) {
			return "", false
		}
	}
	return resolved, true
}
