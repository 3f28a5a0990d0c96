package clean

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// BannedWords is a whole-word, case-insensitive matcher built from an
// operator-supplied word list. It backs the age-13 banned-word filter.
type BannedWords struct {
	re *regexp.Regexp
}

// LoadBannedWords parses a UTF-8, newline-separated word list. Lines
// starting with '#' are comments; blank lines are ignored.
func LoadBannedWords(r io.Reader) (BannedWords, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, regexp.QuoteMeta(line))
	}
	if err := scanner.Err(); err != nil {
		return BannedWords{}, fmt.Errorf("LoadBannedWords: %w", err)
	}
	if len(words) == 0 {
		return BannedWords{}, nil
	}
	pattern := `(?i)(?:\b)(` + strings.Join(words, "|") + `)(?:\b)`
	return BannedWords{re: regexp.MustCompile(pattern)}, nil
}

// Matches reports whether text contains any banned word as a whole word.
func (b BannedWords) Matches(text string) bool {
	if b.re == nil {
		return false
	}
	return b.re.MatchString(text)
}
