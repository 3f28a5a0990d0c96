package llmorch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

// Orchestrator claims unprocessed articles and drives them through
// enrichment: render prompt, call the provider, validate the structured
// response, and persist every artifact in one transaction.
type Orchestrator struct {
	articles repository.ArticleRepository
	client   EnrichClient
	cfg      Config
	metrics  MetricsRecorder
	logger   *slog.Logger
	limiter  *rate.Limiter

	// ResponseDir and RawResponseDir are the on-disk roots for
	// successfully parsed and raw-on-failure payloads, respectively.
	ResponseDir    string
	RawResponseDir string
}

// NewOrchestrator wires a claim/enrich/persist loop against articles
// using client to reach the provider. When cfg.InterRequestDelay is
// positive, every worker shares a single token-bucket limiter paced at
// one request per InterRequestDelay, so WorkerCount workers stay polite
// to the provider in aggregate rather than each pacing independently.
func NewOrchestrator(articles repository.ArticleRepository, client EnrichClient, cfg Config, metrics MetricsRecorder, logger *slog.Logger) *Orchestrator {
	var limiter *rate.Limiter
	if cfg.InterRequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.InterRequestDelay), 1)
	}
	return &Orchestrator{
		articles:       articles,
		client:         client,
		cfg:            cfg,
		metrics:        metrics,
		logger:         logger,
		limiter:        limiter,
		ResponseDir:    filepath.Join("website", "article_response"),
		RawResponseDir: "responses",
	}
}

// RunOnce claims up to one batch of articles and fans them out across
// cfg.WorkerCount concurrent workers, returning the count processed
// successfully and the count failed. It never returns early on a
// per-article failure: every claimed id is attempted. Claims are made
// exclusive by the CAS in ClaimForEnrichment; beyond that, workers share
// only the work channel, the rate limiter and the atomic outcome counters.
func (o *Orchestrator) RunOnce(ctx context.Context) (succeeded, failed int, err error) {
	ids, err := o.articles.ClaimForEnrichment(ctx, int64(o.cfg.ClaimStaleAfter.Seconds()), o.cfg.ClaimBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("RunOnce: ClaimForEnrichment: %w", err)
	}
	o.metrics.RecordClaimBatchSize(len(ids))
	o.logger.Info("claimed articles for enrichment", slog.Int("count", len(ids)))

	workers := o.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	var succeededCount, failedCount int64
	work := make(chan string, len(ids))
	for _, id := range ids {
		work <- id
	}
	close(work)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for id := range work {
				if o.limiter != nil {
					if err := o.limiter.Wait(gctx); err != nil {
						return err
					}
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := o.processOne(gctx, id); err != nil {
					o.logger.Warn("article enrichment failed", slog.String("article_id", id), slog.Any("error", err))
					atomic.AddInt64(&failedCount, 1)
				} else {
					atomic.AddInt64(&succeededCount, 1)
				}
			}
			return nil
		})
	}

	waitErr := g.Wait()
	return int(succeededCount), int(failedCount), waitErr
}

// Run loops RunOnce until a claim call returns zero ids, i.e. the queue
// of unprocessed articles is drained.
func (o *Orchestrator) Run(ctx context.Context) (succeeded, failed int, err error) {
	for {
		n, f, err := o.RunOnce(ctx)
		succeeded += n
		failed += f
		if err != nil {
			return succeeded, failed, err
		}
		if n+f == 0 {
			return succeeded, failed, nil
		}
	}
}

func (o *Orchestrator) processOne(ctx context.Context, id string) error {
	article, err := o.articles.Get(ctx, id)
	if err != nil {
		o.failArticle(ctx, id, fmt.Errorf("load article: %w", err))
		return err
	}

	prompt, err := renderPrompt(article)
	if err != nil {
		o.failArticle(ctx, id, err)
		return err
	}

	raw, err := o.client.Enrich(ctx, prompt)
	if err != nil {
		o.metrics.RecordOutcome("llm_error")
		o.failArticle(ctx, id, err)
		return err
	}

	var parsed EnrichmentResponse
	if decodeErr := json.Unmarshal([]byte(raw), &parsed); decodeErr != nil {
		o.saveRawResponse(id, raw)
		o.metrics.RecordOutcome("structure_rejected")
		structErr := &StructureError{Reason: "not_json", Details: []string{decodeErr.Error()}}
		o.failArticle(ctx, id, structErr)
		return structErr
	}

	if validateErr := parsed.Validate(id); validateErr != nil {
		o.saveRawResponse(id, raw)
		o.metrics.RecordOutcome("structure_rejected")
		o.failArticle(ctx, id, validateErr)
		return validateErr
	}

	responsePath, size, err := o.saveParsedResponse(id, raw)
	if err != nil {
		o.failArticle(ctx, id, err)
		return err
	}

	artifacts := buildArtifacts(id, &parsed, responsePath, size)
	if err := o.articles.CompleteEnrichment(ctx, id, artifacts); err != nil {
		o.failArticle(ctx, id, err)
		return err
	}

	o.metrics.RecordOutcome("enriched")
	o.logger.Info("article enriched",
		slog.String("article_id", id),
		slog.Int("summary_hard_chars", wordCountDiagnostic(parsed.SummaryHard)))
	return nil
}

func (o *Orchestrator) failArticle(ctx context.Context, id string, cause error) {
	if err := o.articles.FailEnrichment(ctx, id, cause.Error()); err != nil {
		o.logger.Error("failed to release claim after error",
			slog.String("article_id", id), slog.Any("error", err))
	}
}

func (o *Orchestrator) saveRawResponse(id, raw string) {
	if err := os.MkdirAll(o.RawResponseDir, 0o755); err != nil {
		o.logger.Error("failed to create raw response directory", slog.Any("error", err))
		return
	}
	path := filepath.Join(o.RawResponseDir, fmt.Sprintf("raw_response_%s.txt", id))
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		o.logger.Error("failed to write raw response", slog.String("path", path), slog.Any("error", err))
	}
}

func (o *Orchestrator) saveParsedResponse(id, raw string) (path string, size int, err error) {
	if err := os.MkdirAll(o.ResponseDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("saveParsedResponse: mkdir: %w", err)
	}
	path = filepath.Join(o.ResponseDir, fmt.Sprintf("article_%s_response.json", id))
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return "", 0, fmt.Errorf("saveParsedResponse: write: %w", err)
	}
	return path, len(raw), nil
}

// buildArtifacts maps the validated provider response onto the
// persistence-layer artifact bundle.
func buildArtifacts(id string, r *EnrichmentResponse, responsePath string, size int) repository.EnrichmentArtifacts {
	artifacts := repository.EnrichmentArtifacts{
		ZhTitle: r.TitleZh,
		Summaries: []entity.Summary{
			{ArticleID: id, Difficulty: entity.DifficultyEasy, Body: r.SummaryEasy},
			{ArticleID: id, Difficulty: entity.DifficultyMid, Body: r.SummaryMid},
			{ArticleID: id, Difficulty: entity.DifficultyHard, Body: r.SummaryHard, ZhBody: r.SummaryZhHard},
		},
		BackgroundReads: []entity.BackgroundRead{
			{ArticleID: id, Difficulty: entity.DifficultyEasy, Body: r.BackgroundReadingEasy},
			{ArticleID: id, Difficulty: entity.DifficultyMid, Body: r.BackgroundReadingMid},
			{ArticleID: id, Difficulty: entity.DifficultyHard, Body: r.BackgroundReadingHard},
		},
		ArticleAnalyses: []entity.ArticleAnalysis{
			{ArticleID: id, Difficulty: entity.DifficultyMid, Body: r.ArticleAnalysisMid},
			{ArticleID: id, Difficulty: entity.DifficultyHard, Body: r.ArticleAnalysisHard},
		},
		Response: entity.Response{ArticleID: id, FilePath: responsePath, SizeBytes: size},
	}

	for _, k := range r.KeyWordsEasy {
		artifacts.Keywords = append(artifacts.Keywords, entity.Keyword{ArticleID: id, Difficulty: entity.DifficultyEasy, Word: k.Word, Frequency: k.Frequency, Explanation: k.Explanation})
	}
	for _, k := range r.KeyWordsMid {
		artifacts.Keywords = append(artifacts.Keywords, entity.Keyword{ArticleID: id, Difficulty: entity.DifficultyMid, Word: k.Word, Frequency: k.Frequency, Explanation: k.Explanation})
	}
	for _, k := range r.KeyWordsHard {
		artifacts.Keywords = append(artifacts.Keywords, entity.Keyword{ArticleID: id, Difficulty: entity.DifficultyHard, Word: k.Word, Frequency: k.Frequency, Explanation: k.Explanation})
	}

	appendQuestions(&artifacts, id, entity.DifficultyEasy, r.MultipleChoiceQuestionsEasy)
	appendQuestions(&artifacts, id, entity.DifficultyMid, r.MultipleChoiceQuestionsMid)
	appendQuestions(&artifacts, id, entity.DifficultyHard, r.MultipleChoiceQuestionsHard)

	appendComments(&artifacts, id, entity.DifficultyEasy, r.PerspectivesEasy)
	appendComments(&artifacts, id, entity.DifficultyMid, r.PerspectivesMid)
	appendComments(&artifacts, id, entity.DifficultyHard, r.PerspectivesHard)

	return artifacts
}

func appendQuestions(artifacts *repository.EnrichmentArtifacts, id string, difficulty entity.Difficulty, entries []QuestionEntry) {
	for _, q := range entries {
		choices := make([]entity.Choice, 0, len(q.Choices))
		for _, c := range q.Choices {
			choices = append(choices, entity.Choice{Text: c.Text, IsCorrect: c.IsCorrect})
		}
		artifacts.Questions = append(artifacts.Questions, entity.Question{
			ArticleID:  id,
			Difficulty: difficulty,
			Prompt:     q.Question,
			Choices:    choices,
		})
	}
}

func appendComments(artifacts *repository.EnrichmentArtifacts, id string, difficulty entity.Difficulty, entries []PerspectiveEntry) {
	for _, p := range entries {
		artifacts.Comments = append(artifacts.Comments, entity.Comment{
			ArticleID:   id,
			Difficulty:  difficulty,
			Attitude:    entity.Attitude(p.Attitude),
			Body:        p.Body,
			IsSynthesis: p.IsSynthesis,
		})
	}
}
