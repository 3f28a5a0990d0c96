package clean

import (
	"fmt"
	"regexp"
	"strings"
)

// RejectReason enumerates why Clean refused an article.
type RejectReason string

const (
	ReasonTooShort    RejectReason = "too_short"
	ReasonTooLong     RejectReason = "too_long"
	ReasonVideo       RejectReason = "video"
	ReasonTranscript  RejectReason = "transcript"
	ReasonFiller      RejectReason = "filler"
	ReasonBannedWord  RejectReason = "banned_word"
)

// Rejection explains why an article was dropped.
type Rejection struct {
	Reason RejectReason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("article rejected: %s", r.Reason)
}

// Cleaned is the result of a successful cascade: the cleaned paragraphs in
// order, and their concatenation as a single normalized string.
type Cleaned struct {
	Paragraphs []string
	Text       string
}

// Category distinguishes which length gate applies.
type Category int

const (
	CategoryGeneral Category = iota
	CategorySportStrict
	CategorySportRelaxed
)

// Clean runs the full cleaning cascade over rawHTML and applies the
// length gate and article-level rejection filters against title+text.
// It has no side effects: every input is a value, every output is a value.
func Clean(rawHTML, title string, cat Category, cfg Thresholds, banned BannedWords) (*Cleaned, *Rejection) {
	paragraphs, err := extractParagraphs(rawHTML)
	if err != nil || len(paragraphs) == 0 {
		return nil, &Rejection{Reason: ReasonTooShort}
	}

	paragraphs = dropShort(paragraphs, cfg.ParagraphMinLength)
	paragraphs = dropBylines(paragraphs)
	paragraphs = dropPromo(paragraphs)
	paragraphs = dropBoilerplate(paragraphs)
	paragraphs = dropRelated(paragraphs)
	paragraphs = collapseDuplicates(paragraphs)

	text := strings.Join(paragraphs, "\n\n")

	if rejection := rejectByLength(text, cat, cfg); rejection != nil {
		return nil, rejection
	}
	if rejection := rejectByContent(title, text, banned); rejection != nil {
		return nil, rejection
	}

	return &Cleaned{Paragraphs: paragraphs, Text: text}, nil
}

func rejectByLength(text string, cat Category, cfg Thresholds) *Rejection {
	n := len([]rune(text))
	switch cat {
	case CategorySportStrict:
		if n < cfg.SportStrictMinChars {
			return &Rejection{Reason: ReasonTooShort}
		}
	case CategorySportRelaxed:
		if n < cfg.SportRelaxedMinChars {
			return &Rejection{Reason: ReasonTooShort}
		}
	default:
		if n < cfg.CleanedCharsMinGlobal {
			return &Rejection{Reason: ReasonTooShort}
		}
		if n > cfg.CleanedCharsMaxGlobal {
			return &Rejection{Reason: ReasonTooLong}
		}
	}
	return nil
}

var (
	videoPattern      = regexp.MustCompile(`(?i)\b(watch:|video:|full episode\b)`)
	transcriptSpeaker = regexp.MustCompile(`(?m)^[A-Z][a-zA-Z .'-]{1,30}:\s+\S`)
	transcriptWord    = regexp.MustCompile(`(?i)\btranscript\b`)
	audioWord         = regexp.MustCompile(`(?i)\baudio\b`)
	fillerPattern     = regexp.MustCompile(`(?i)\b(wordle|puzzle|sudoku)\b`)
)

func rejectByContent(title, text string, banned BannedWords) *Rejection {
	combined := title + "\n" + text

	if videoPattern.MatchString(combined) {
		return &Rejection{Reason: ReasonVideo}
	}
	if fillerPattern.MatchString(title) {
		return &Rejection{Reason: ReasonFiller}
	}
	if countSpeakerLines(text) >= 2 || (transcriptWord.MatchString(combined) && audioWord.MatchString(combined)) {
		return &Rejection{Reason: ReasonTranscript}
	}
	if banned.Matches(combined) {
		return &Rejection{Reason: ReasonBannedWord}
	}
	return nil
}

func countSpeakerLines(text string) int {
	return len(transcriptSpeaker.FindAllString(text, -1))
}
