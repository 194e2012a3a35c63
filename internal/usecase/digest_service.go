package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/retry"
)

// DigestConfig tunes digest generation.
type DigestConfig struct {
	// Window bounds how far back candidate articles are pulled.
	Window time.Duration
	// MinScore excludes low-relevance articles from the candidate pool.
	MinScore float64
}

func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		Window:   24 * time.Hour,
		MinScore: 50,
	}
}

type DigestService interface {
	// Generate builds and stores the digest for the calendar date. It
	// returns nil without error when no articles qualify; an empty day is
	// not a failure. Regenerating a date replaces the stored digest.
	Generate(ctx context.Context, date time.Time) (*domain.Digest, error)
}

type digestService struct {
	articleRepo domain.ArticleRepository
	digestRepo  domain.DigestRepository
	llm         domain.LLMClient
	prompts     PromptBuilder
	validator   OutputValidator
	retrier     *retry.Retrier
	config      DigestConfig
	logger      *slog.Logger
}

func NewDigestService(
	articleRepo domain.ArticleRepository,
	digestRepo domain.DigestRepository,
	llm domain.LLMClient,
	prompts PromptBuilder,
	config DigestConfig,
	logger *slog.Logger,
) DigestService {
	return &digestService{
		articleRepo: articleRepo,
		digestRepo:  digestRepo,
		llm:         llm,
		prompts:     prompts,
		validator:   NewOutputValidator(),
		retrier:     retry.New(retry.DefaultConfig(), scoringRetryable, logger),
		config:      config,
		logger:      logger,
	}
}

func (s *digestService) Generate(ctx context.Context, date time.Time) (*domain.Digest, error) {
	since := date.UTC().Add(-s.config.Window)

	candidates, err := s.articleRepo.TopForDigest(ctx, since, s.config.MinScore, domain.MaxDigestInputArticles)
	if err != nil {
		return nil, fmt.Errorf("failed to load digest candidates: %w", err)
	}

	if len(candidates) == 0 {
		s.logger.Info("digest_skipped_no_articles",
			slog.String("digest_date", date.UTC().Format("2006-01-02")),
		)
		return nil, nil
	}

	system, user := s.prompts.BuildDigest(candidates, date)

	var summary *domain.DigestSummary
	err = s.retrier.Do(ctx, func() error {
		raw, completeErr := s.llm.Complete(ctx, system, user)
		if completeErr != nil {
			return fmt.Errorf("failed to complete digest: %w", completeErr)
		}
		summary, completeErr = s.validator.ValidateDigest(raw)
		return completeErr
	})
	if err != nil {
		return nil, err
	}

	// Top articles are picked by stored score, not by what the narrative
	// happened to mention.
	topCount := len(candidates)
	if topCount > domain.MaxDigestTopArticles {
		topCount = domain.MaxDigestTopArticles
	}
	topIDs := make([]uuid.UUID, topCount)
	for i := 0; i < topCount; i++ {
		topIDs[i] = candidates[i].ID
	}

	digest := &domain.Digest{
		ID:                     uuid.New(),
		DigestDate:             truncateToDate(date),
		SummaryText:            summary.SummaryText,
		KeyThemes:              summary.KeyThemes,
		NotableDevelopments:    summary.NotableDevelopments,
		TotalArticlesProcessed: len(candidates),
		TopArticleIDs:          topIDs,
		CreatedAt:              time.Now().UTC(),
	}

	if err := s.digestRepo.UpsertForDate(ctx, digest); err != nil {
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}

	s.logger.Info("digest_generated",
		slog.String("digest_date", digest.DigestDate.Format("2006-01-02")),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("top_article_count", len(topIDs)),
		slog.Int("summary_length", len(digest.SummaryText)),
	)
	return digest, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
