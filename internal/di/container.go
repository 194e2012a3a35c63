package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"news-orchestrator/internal/adapter/fetcher"
	"news-orchestrator/internal/adapter/newshttp"
	"news-orchestrator/internal/adapter/ollama"
	"news-orchestrator/internal/adapter/openaillm"
	"news-orchestrator/internal/adapter/repository"
	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/config"
	"news-orchestrator/internal/ratelimit"
	"news-orchestrator/internal/scheduler"
	"news-orchestrator/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	ArticleRepo domain.ArticleRepository
	DigestRepo  domain.DigestRepository

	// Rate limiting shared by fetchers and the LLM client
	RateLimits *ratelimit.Manager

	// Fetchers
	Registry *fetcher.Registry

	// Services
	Embeddings usecase.EmbeddingService
	Dedup      usecase.DedupService
	Scoring    usecase.ScoringService
	Ingest     usecase.IngestService
	Digest     usecase.DigestService

	// Scheduler with the ingest and digest tasks registered
	Scheduler *scheduler.Scheduler

	// HTTP surface
	Handler *newshttp.Handler
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	articleRepo := repository.NewArticleRepository(pool)
	digestRepo := repository.NewDigestRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Rate limits cover every external service, including the LLM API
	limits := ratelimit.NewManager(ratelimit.DefaultServiceConfigs(), log)

	// External clients
	encoder := ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
	llm := openaillm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAITimeout, limits, log)

	// Fetchers
	fetchers := []domain.Fetcher{
		fetcher.NewHackerNewsFetcher(limits, log),
		fetcher.NewArxivFetcher(nil, limits, log),
		fetcher.NewGitHubFetcher(cfg.GitHubRepos, cfg.GitHubToken, limits, log),
		fetcher.NewHuggingFaceFetcher(cfg.HuggingFaceKey, limits, log),
		fetcher.NewRedditFetcher(cfg.RedditSubreddits, limits, log),
	}
	if len(cfg.RSSFeedURLs) > 0 {
		fetchers = append(fetchers, fetcher.NewRSSFetcher(cfg.RSSFeedURLs, limits, log))
	}
	registry, err := fetcher.NewRegistry(fetchers...)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetcher registry: %w", err)
	}

	// Services
	embeddings, err := usecase.NewEmbeddingService(encoder, cfg.EmbedCacheSize, cfg.EmbeddingDim, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding service: %w", err)
	}
	dedup := usecase.NewDedupService(articleRepo, embeddings, usecase.DedupConfig{
		SoftThreshold: cfg.SimilarityThreshold,
		HardThreshold: cfg.HardDupThreshold,
		Window:        time.Duration(cfg.DedupWindowHours) * time.Hour,
	}, log)
	scoring := usecase.NewScoringService(llm, usecase.NewPromptBuilder(), cfg.ScoringConcurrency, log)
	ingest := usecase.NewIngestService(registry, scoring, dedup, articleRepo, txManager, usecase.IngestConfig{
		MaxItemsPerSource: cfg.MaxItemsPerSource,
		MinStoreScore:     cfg.MinStoreScore,
	}, log)
	digest := usecase.NewDigestService(articleRepo, digestRepo, llm, usecase.NewPromptBuilder(), usecase.DigestConfig{
		Window:   24 * time.Hour,
		MinScore: cfg.MinDigestScore,
	}, log)

	// Scheduler
	sched := scheduler.New(log)
	if err := sched.AddIntervalTask(newshttp.TaskFetch, cfg.FetchIntervalMinutes, func(ctx context.Context) error {
		_, err := ingest.Run(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to register fetch task: %w", err)
	}
	if err := sched.AddDailyTask(newshttp.TaskDigest, cfg.DigestHourUTC, func(ctx context.Context) error {
		_, err := digest.Generate(ctx, time.Now().UTC())
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to register digest task: %w", err)
	}

	handler := newshttp.NewHandler(articleRepo, digestRepo, sched, registry, limits)

	return &ApplicationComponents{
		ArticleRepo: articleRepo,
		DigestRepo:  digestRepo,
		RateLimits:  limits,
		Registry:    registry,
		Embeddings:  embeddings,
		Dedup:       dedup,
		Scoring:     scoring,
		Ingest:      ingest,
		Digest:      digest,
		Scheduler:   sched,
		Handler:     handler,
	}, nil
}
