package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/logger"
	"news-orchestrator/internal/retry"
)

// defaultScoringConcurrency bounds parallel LLM calls in a batch.
const defaultScoringConcurrency = 5

type ScoringService interface {
	// Score analyzes one article and returns its validated analysis.
	Score(ctx context.Context, article *domain.Article) (*domain.NewsAnalysis, error)

	// ScoreBatch scores articles concurrently and applies each result onto
	// its article in place. Articles whose scoring failed are returned
	// unscored; one bad article never fails the batch.
	ScoreBatch(ctx context.Context, articles []domain.Article) []domain.Article

	// ScoreAndFilter scores the batch and drops articles scoring below
	// minScore or failing analysis altogether.
	ScoreAndFilter(ctx context.Context, articles []domain.Article, minScore float64) []domain.Article
}

type scoringService struct {
	llm         domain.LLMClient
	prompts     PromptBuilder
	validator   OutputValidator
	retrier     *retry.Retrier
	concurrency int64
	clog        *logger.ContextLogger
}

func NewScoringService(llm domain.LLMClient, prompts PromptBuilder, concurrency int, log *slog.Logger) ScoringService {
	if concurrency <= 0 {
		concurrency = defaultScoringConcurrency
	}
	return &scoringService{
		llm:         llm,
		prompts:     prompts,
		validator:   NewOutputValidator(),
		retrier:     retry.New(retry.DefaultConfig(), scoringRetryable, log),
		concurrency: int64(concurrency),
		clog:        logger.NewContextLogger(log),
	}
}

// scoringRetryable retries transport failures but not validation failures:
// a model that produced out-of-contract output once will usually do it again,
// and the caller decides what to do with the unscored article.
func scoringRetryable(err error) bool {
	var scoringErr *domain.ScoringError
	return !errors.As(err, &scoringErr)
}

func (s *scoringService) Score(ctx context.Context, article *domain.Article) (*domain.NewsAnalysis, error) {
	system, user := s.prompts.BuildAnalysis(article)

	var analysis *domain.NewsAnalysis
	err := s.retrier.Do(ctx, func() error {
		raw, err := s.llm.Complete(ctx, system, user)
		if err != nil {
			return fmt.Errorf("failed to complete analysis: %w", err)
		}
		analysis, err = s.validator.ValidateAnalysis(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (s *scoringService) ScoreBatch(ctx context.Context, articles []domain.Article) []domain.Article {
	if len(articles) == 0 {
		return nil
	}

	start := time.Now()
	sem := semaphore.NewWeighted(s.concurrency)
	results := make([]domain.Article, len(articles))

	for i := range articles {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; pass the remainder through unscored.
			for j := i; j < len(articles); j++ {
				results[j] = articles[j]
			}
			break
		}
		go func(i int) {
			defer sem.Release(1)
			article := articles[i]

			analysis, err := s.Score(ctx, &article)
			if err != nil {
				s.clog.WithContext(logger.WithArticleID(ctx, article.ID.String())).Warn("article_scoring_failed",
					slog.String("title", article.Title),
					slog.String("error", err.Error()),
				)
			} else {
				article.ApplyAnalysis(analysis)
			}
			results[i] = article
		}(i)
	}

	// Draining the semaphore waits for every in-flight goroutine.
	_ = sem.Acquire(context.Background(), s.concurrency)
	sem.Release(s.concurrency)

	s.clog.WithContext(ctx).Info("score_batch_completed",
		slog.Int("article_count", len(articles)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results
}

func (s *scoringService) ScoreAndFilter(ctx context.Context, articles []domain.Article, minScore float64) []domain.Article {
	scored := s.ScoreBatch(ctx, articles)

	kept := make([]domain.Article, 0, len(scored))
	for _, article := range scored {
		if article.RelevanceScore == nil {
			continue
		}
		if article.Score() < minScore {
			continue
		}
		kept = append(kept, article)
	}

	s.clog.WithContext(ctx).Info("score_filter_completed",
		slog.Int("scored_count", len(scored)),
		slog.Int("kept_count", len(kept)),
		slog.Float64("min_score", minScore),
	)
	return kept
}
