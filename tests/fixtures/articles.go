// Package fixtures provides reusable synthetic article bodies for tests
// that need realistic-length HTML content without depending on a live
// feed. internal/clean's length-band and paragraph-extraction tests use it.
package fixtures

import (
	"fmt"
	"strings"
)

// ArticleOptions configures the generated article body.
type ArticleOptions struct {
	// Length is the approximate character count of the plain-text body
	// (target length, some variance allowed on either side).
	Length int

	// Paragraphs, if > 0, wraps the generated sentences into that many
	// <p> tags instead of a single block.
	Paragraphs int
}

// GenerateArticleHTML generates an HTML body of roughly opts.Length
// characters, made of coherent English sentences about ordinary news
// topics, wrapped in opts.Paragraphs paragraph tags (default 1).
func GenerateArticleHTML(opts ArticleOptions) string {
	paragraphs := opts.Paragraphs
	if paragraphs < 1 {
		paragraphs = 1
	}
	body := generateSentences(opts.Length)
	words := strings.Fields(body)
	if len(words) < paragraphs {
		paragraphs = 1
	}

	var b strings.Builder
	chunkSize := len(words) / paragraphs
	for i := 0; i < paragraphs; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == paragraphs-1 {
			end = len(words)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(words[start:end], " "))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// GenerateShortArticleHTML generates a body too short to clear most
// length-band thresholds (~200 characters, one paragraph).
func GenerateShortArticleHTML() string {
	return GenerateArticleHTML(ArticleOptions{Length: 200, Paragraphs: 1})
}

// GenerateMediumArticleHTML generates a typical-length body (~2000
// characters, six paragraphs).
func GenerateMediumArticleHTML() string {
	return GenerateArticleHTML(ArticleOptions{Length: 2000, Paragraphs: 6})
}

// GenerateLongArticleHTML generates a long-form body (~10000
// characters, twelve paragraphs).
func GenerateLongArticleHTML() string {
	return GenerateArticleHTML(ArticleOptions{Length: 10000, Paragraphs: 12})
}

var baseSentences = []string{
	"City officials announced a new plan to improve the downtown transit system.",
	"Scientists published a study describing how local wetlands support migratory birds.",
	"The school district unveiled a revised calendar for the upcoming academic year.",
	"Volunteers gathered over the weekend to clean up the riverside park.",
	"Engineers are testing a prototype bridge designed to withstand stronger storms.",
	"Researchers found that the regional library program increased reading scores among students.",
	"The state agriculture office reported a strong harvest across several counties this season.",
	"A community center opened its doors with new classes for residents of all ages.",
	"Health officials reminded residents to update routine vaccinations before the season changes.",
	"The transit authority added new bus routes connecting outlying neighborhoods to downtown.",
	"Local businesses reported steady growth following the reopening of the main market street.",
	"A youth sports league expanded its programs to include two additional age groups.",
	"The museum announced an exhibit exploring the region's early trade routes.",
	"Weather forecasters expect a mild week with a chance of scattered showers.",
	"The city council approved funding for a new recycling initiative starting next month.",
}

func generateSentences(targetLength int) string {
	var b strings.Builder
	current := 0
	idx := 0
	for current < targetLength {
		sentence := baseSentences[idx%len(baseSentences)]
		idx++
		if current > 0 {
			b.WriteString(" ")
			current++
		}
		b.WriteString(sentence)
		current = len([]rune(b.String()))
	}
	if current < targetLength {
		b.WriteString(fmt.Sprintf(" Additional filler content follows for padding to %d characters.", targetLength))
	}
	return b.String()
}
