package imagestage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

// Stage generates the web and mobile renditions for every article image
// still missing one, resuming from a checkpoint file across restarts.
type Stage struct {
	Articles repository.ArticleRepository
	Cfg      Config
	Logger   *slog.Logger
}

func NewStage(articles repository.ArticleRepository, cfg Config, logger *slog.Logger) *Stage {
	return &Stage{Articles: articles, Cfg: cfg, Logger: logger}
}

// Stats summarizes one RunOnce call.
type Stats struct {
	Processed int
	Skipped   int
	Failed    int
}

// RunOnce processes up to Cfg.BatchSize pending images, in image_id
// ascending order, resuming after the last checkpointed image_id.
func (s *Stage) RunOnce(ctx context.Context) (*Stats, error) {
	cp, err := LoadCheckpoint(s.Cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	images, err := s.Articles.ImagesPendingRendition(ctx, cp.LastImageID, s.Cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending renditions: %w", err)
	}

	stats := &Stats{}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		switch err := s.processOne(ctx, img); {
		case err == nil:
			stats.Processed++
			cp.Counts.Processed++
		case isAlreadyProcessed(err):
			stats.Skipped++
			cp.Counts.Skipped++
		default:
			stats.Failed++
			cp.Counts.Failed++
			if s.Logger != nil {
				s.Logger.Warn("image rendition failed", slog.Int64("image_id", img.ID), slog.Any("error", err))
			}
			continue
		}

		cp.LastImageID = img.ID
		cp.LastProcessedFilename = img.ImageName
		cp.Timestamp = time.Now().UTC().Format(time.RFC3339)
		if err := cp.Save(s.Cfg.CheckpointPath); err != nil && s.Logger != nil {
			s.Logger.Warn("checkpoint save failed", slog.Any("error", err))
		}
	}
	return stats, nil
}

type alreadyProcessedError struct{ path string }

func (e *alreadyProcessedError) Error() string {
	return fmt.Sprintf("mobile rendition already exists at %s", e.path)
}

func isAlreadyProcessed(err error) bool {
	_, ok := err.(*alreadyProcessedError)
	return ok
}

// mobilePath derives the <stem>_mobile.webp path alongside the original.
func mobilePath(localLocation string) string {
	ext := filepath.Ext(localLocation)
	stem := strings.TrimSuffix(localLocation, ext)
	return stem + "_mobile.webp"
}

func (s *Stage) processOne(ctx context.Context, img *entity.Image) error {
	mobile := mobilePath(img.LocalLocation)
	if _, err := os.Stat(mobile); err == nil {
		return &alreadyProcessedError{path: mobile}
	}

	src, err := imaging.Open(img.LocalLocation)
	if err != nil {
		return fmt.Errorf("open %s: %w", img.LocalLocation, err)
	}

	format, err := imaging.FormatFromFilename(img.LocalLocation)
	if err != nil {
		format = imaging.JPEG
	}

	webBytes, err := renderWeb(src, format, s.Cfg.WebMaxWidth, s.Cfg.WebMaxHeight)
	if err != nil {
		return fmt.Errorf("render web rendition: %w", err)
	}
	if err := os.WriteFile(img.LocalLocation, webBytes, 0o644); err != nil {
		return fmt.Errorf("write web rendition: %w", err)
	}

	mobileBytes, err := renderMobile(src, s.Cfg.MobileMaxWidth, s.Cfg.MobileMaxHeight, s.Cfg.MobileMaxBytes, s.Cfg.QualityMin, s.Cfg.QualityMax, s.Cfg.MinDimension)
	if err != nil {
		return fmt.Errorf("render mobile rendition: %w", err)
	}
	if err := os.WriteFile(mobile, mobileBytes, 0o644); err != nil {
		return fmt.Errorf("write mobile rendition: %w", err)
	}

	if err := s.Articles.SetImageRendition(ctx, img.ID, img.LocalLocation, mobile); err != nil {
		return fmt.Errorf("persist rendition paths: %w", err)
	}
	return nil
}
