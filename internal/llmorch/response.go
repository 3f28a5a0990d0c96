package llmorch

import (
	"fmt"
	"strings"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/utils/text"
)

// EnrichmentResponse is the expected shape of the single JSON object the
// LLM provider returns for one article. Field names mirror the external
// contract exactly so json.Unmarshal needs no custom hooks beyond the
// per-tier keyword types below.
type EnrichmentResponse struct {
	ArticleID     string `json:"article_id"`
	TitleZh       string `json:"title_zh"`
	SummaryEasy   string `json:"summary_easy"`
	SummaryMid    string `json:"summary_mid"`
	SummaryHard   string `json:"summary_hard"`
	SummaryZhHard string `json:"summary_zh_hard"`

	KeyWordsEasy []KeywordEasy `json:"key_words_easy"`
	KeyWordsMid  []KeywordMid  `json:"key_words_mid"`
	KeyWordsHard []KeywordHard `json:"key_words_hard"`

	BackgroundReadingEasy string `json:"background_reading_easy"`
	BackgroundReadingMid  string `json:"background_reading_mid"`
	BackgroundReadingHard string `json:"background_reading_hard"`

	ArticleAnalysisMid  string `json:"article_analysis_mid"`
	ArticleAnalysisHard string `json:"article_analysis_hard"`

	MultipleChoiceQuestionsEasy []QuestionEntry `json:"multiple_choice_questions_easy"`
	MultipleChoiceQuestionsMid  []QuestionEntry `json:"multiple_choice_questions_mid"`
	MultipleChoiceQuestionsHard []QuestionEntry `json:"multiple_choice_questions_hard"`

	PerspectivesEasy []PerspectiveEntry `json:"perspectives_easy"`
	PerspectivesMid  []PerspectiveEntry `json:"perspectives_mid"`
	PerspectivesHard []PerspectiveEntry `json:"perspectives_hard"`
}

// KeywordEasy, KeywordMid, KeywordHard carry the same fields but the
// explanation key name varies per tier in the external contract
// (easy_explanation / mid_explanation / hard_explanation).
type KeywordEasy struct {
	Word        string `json:"word"`
	Frequency   int    `json:"frequency"`
	Explanation string `json:"easy_explanation"`
}

type KeywordMid struct {
	Word        string `json:"word"`
	Frequency   int    `json:"frequency"`
	Explanation string `json:"mid_explanation"`
}

type KeywordHard struct {
	Word        string `json:"word"`
	Frequency   int    `json:"frequency"`
	Explanation string `json:"hard_explanation"`
}

// QuestionEntry is one multiple-choice comprehension question.
type QuestionEntry struct {
	Question string        `json:"question"`
	Choices  []ChoiceEntry `json:"choices"`
}

// ChoiceEntry is a single answer option.
type ChoiceEntry struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// PerspectiveEntry is one comment/perspective row, including the
// mandated neutral synthesis.
type PerspectiveEntry struct {
	Attitude    string `json:"attitude"`
	Body        string `json:"body"`
	IsSynthesis bool   `json:"is_synthesis"`
}

const (
	minWordsEasy, maxWordsEasy = 100, 200
	minWordsMid, maxWordsMid   = 300, 500
	minWordsHard, maxWordsHard = 500, 700
)

// Validate enforces every testable invariant on the response shape:
// mandatory cardinality per tier and the synthesis-neutrality rule.
// It aggregates every violation rather than failing on the first one,
// so a single rejected response surfaces a complete diagnosis.
func (r *EnrichmentResponse) Validate(expectedArticleID string) error {
	var errs []string

	if r.ArticleID != expectedArticleID {
		errs = append(errs, fmt.Sprintf("article_id mismatch: got %q, want %q", r.ArticleID, expectedArticleID))
	}

	errs = append(errs, validateWordCount("summary_easy", r.SummaryEasy, minWordsEasy, maxWordsEasy)...)
	errs = append(errs, validateWordCount("summary_mid", r.SummaryMid, minWordsMid, maxWordsMid)...)
	errs = append(errs, validateWordCount("summary_hard", r.SummaryHard, minWordsHard, maxWordsHard)...)
	errs = append(errs, validateWordCount("summary_zh_hard", r.SummaryZhHard, minWordsHard, maxWordsHard)...)

	if len(r.KeyWordsEasy) != 10 {
		errs = append(errs, fmt.Sprintf("key_words_easy: want 10 entries, got %d", len(r.KeyWordsEasy)))
	}
	if len(r.KeyWordsMid) != 10 {
		errs = append(errs, fmt.Sprintf("key_words_mid: want 10 entries, got %d", len(r.KeyWordsMid)))
	}
	if len(r.KeyWordsHard) != 10 {
		errs = append(errs, fmt.Sprintf("key_words_hard: want 10 entries, got %d", len(r.KeyWordsHard)))
	}

	if len(r.MultipleChoiceQuestionsEasy) != 8 {
		errs = append(errs, fmt.Sprintf("multiple_choice_questions_easy: want 8, got %d", len(r.MultipleChoiceQuestionsEasy)))
	}
	if len(r.MultipleChoiceQuestionsMid) != 10 {
		errs = append(errs, fmt.Sprintf("multiple_choice_questions_mid: want 10, got %d", len(r.MultipleChoiceQuestionsMid)))
	}
	if len(r.MultipleChoiceQuestionsHard) != 12 {
		errs = append(errs, fmt.Sprintf("multiple_choice_questions_hard: want 12, got %d", len(r.MultipleChoiceQuestionsHard)))
	}

	errs = append(errs, validatePerspectives("perspectives_easy", r.PerspectivesEasy)...)
	errs = append(errs, validatePerspectives("perspectives_mid", r.PerspectivesMid)...)
	errs = append(errs, validatePerspectives("perspectives_hard", r.PerspectivesHard)...)

	if strings.TrimSpace(r.ArticleAnalysisMid) == "" {
		errs = append(errs, "article_analysis_mid: must not be empty")
	}
	if strings.TrimSpace(r.ArticleAnalysisHard) == "" {
		errs = append(errs, "article_analysis_hard: must not be empty")
	}

	if len(errs) > 0 {
		return &StructureError{Reason: "validation failed", Details: errs}
	}
	return nil
}

func validateWordCount(field, body string, min, max int) []string {
	n := len(strings.Fields(body))
	if n < min || n > max {
		return []string{fmt.Sprintf("%s: word count %d out of band [%d, %d]", field, n, min, max)}
	}
	return nil
}

func validatePerspectives(field string, entries []PerspectiveEntry) []string {
	var errs []string
	if len(entries) != 3 {
		errs = append(errs, fmt.Sprintf("%s: want 2 perspectives + 1 synthesis (3 total), got %d", field, len(entries)))
		return errs
	}
	synthesisCount := 0
	for _, e := range entries {
		switch entity.Attitude(e.Attitude) {
		case entity.AttitudePositive, entity.AttitudeNeutral, entity.AttitudeNegative:
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid attitude %q", field, e.Attitude))
		}
		if e.IsSynthesis {
			synthesisCount++
			if e.Attitude != string(entity.AttitudeNeutral) {
				errs = append(errs, fmt.Sprintf("%s: synthesis row must carry attitude=neutral, got %q", field, e.Attitude))
			}
		}
	}
	if synthesisCount != 1 {
		errs = append(errs, fmt.Sprintf("%s: want exactly one synthesis row, got %d", field, synthesisCount))
	}
	return errs
}

// wordCountDiagnostic is a small helper exposed for the orchestrator's
// logging; not part of the validation contract itself.
func wordCountDiagnostic(body string) int {
	return text.CountRunes(body)
}
