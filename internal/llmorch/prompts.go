package llmorch

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"catchupfeed/internal/domain/entity"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates map[entity.PromptName]*template.Template

func init() {
	promptTemplates = make(map[entity.PromptName]*template.Template, 5)
	files := map[entity.PromptName]string{
		entity.PromptDefault:    "prompts/default.tmpl",
		entity.PromptSports:     "prompts/sports.tmpl",
		entity.PromptTechnology: "prompts/technology.tmpl",
		entity.PromptScience:    "prompts/science.tmpl",
		entity.PromptPolitical:  "prompts/political.tmpl",
	}
	for name, path := range files {
		tmpl, err := template.ParseFS(promptFS, path)
		if err != nil {
			panic(fmt.Sprintf("llmorch: embedded prompt template %s failed to parse: %v", path, err))
		}
		promptTemplates[name] = tmpl
	}
}

// articleJSON is the single-placeholder payload substituted into every
// prompt template: just enough of the article for the provider to work
// from, never the full internal row.
type articleJSON struct {
	ArticleID   string `json:"article_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	PublishedAt string `json:"published_at"`
}

// renderPrompt builds the full prompt text for article using the prompt
// family selected by its category.
func renderPrompt(article *entity.Article) (string, error) {
	tmpl, ok := promptTemplates[article.Category.PromptName]
	if !ok {
		return "", fmt.Errorf("renderPrompt: unknown prompt family %q", article.Category.PromptName)
	}

	payload := articleJSON{
		ArticleID:   article.ID,
		Title:       article.Title,
		Content:     article.Content,
		PublishedAt: article.PublishedAt.UTC().Format(time.RFC3339),
	}
	rawJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("renderPrompt: marshal article payload: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ ArticleJSON string }{ArticleJSON: string(rawJSON)}); err != nil {
		return "", fmt.Errorf("renderPrompt: execute template: %w", err)
	}
	return buf.String(), nil
}
