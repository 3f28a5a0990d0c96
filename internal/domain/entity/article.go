// Package entity defines the core domain entities and validation logic for the
// mining and enrichment pipeline: feeds, articles, images, and the per-article
// multi-difficulty enrichment artifacts produced by the LLM orchestrator.
package entity

import (
	"fmt"
	"regexp"
	"time"
)

// articleIDPattern matches the semantic date-based article id YYYYMMDDnn,
// where nn is a zero-padded counter in [01, 99].
var articleIDPattern = regexp.MustCompile(`^[0-9]{8}(0[1-9]|[1-9][0-9])$`)

// Article represents a single harvested, cleaned, and (eventually) enriched
// news item. ID is a semantic TEXT key, not a surrogate integer: it encodes
// the UTC date of insertion and a same-day counter, so lexicographic order
// on ID matches chronological order within a day.
type Article struct {
	ID       string
	FeedID   int64
	Category Category

	Title       string
	URL         string
	Description string
	Content     string // cleaned paragraphs, joined
	PublishedAt time.Time
	CrawledAt   time.Time

	ImageID *int64

	DeepseekProcessed  bool
	DeepseekFailed     int
	DeepseekInProgress bool
	DeepseekLastError  string
	ClaimedAt          *time.Time
	ProcessedAt        *time.Time

	ZhTitle string
}

// ValidateID reports whether id conforms to the YYYYMMDDnn semantic format.
func ValidateID(id string) error {
	if !articleIDPattern.MatchString(id) {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("article id %q must match YYYYMMDDnn", id)}
	}
	return nil
}

// Category groups articles and selects which prompt family the LLM
// orchestrator uses to enrich them.
type Category struct {
	ID         int64
	Name       string
	PromptName PromptName
}

// PromptName identifies one of the fixed family of enrichment prompt
// templates. It is a closed enumeration: new categories must map onto one
// of these five, never invent a sixth ad hoc template.
type PromptName string

const (
	PromptDefault    PromptName = "default"
	PromptSports     PromptName = "sports"
	PromptTechnology PromptName = "technology"
	PromptScience    PromptName = "science"
	PromptPolitical  PromptName = "political"
)

// ValidPromptNames reports whether name is one of the five canonical
// prompt families.
func ValidPromptNames(name PromptName) bool {
	switch name {
	case PromptDefault, PromptSports, PromptTechnology, PromptScience, PromptPolitical:
		return true
	default:
		return false
	}
}

// Difficulty is one of the canonical enrichment tiers. difficulty_levels
// seeds these so the orchestrator and verifier can iterate tiers
// data-driven rather than against a hardcoded Go enum.
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyMid  Difficulty = "mid"
	DifficultyHard Difficulty = "hard"
)

// Attitude is the stance a comment/perspective row takes toward the
// article. Synthesis rows must always carry AttitudeNeutral.
type Attitude string

const (
	AttitudePositive Attitude = "positive"
	AttitudeNeutral  Attitude = "neutral"
	AttitudeNegative Attitude = "negative"
)
