package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"news-orchestrator/internal/adapter/fetcher"
	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/logger"
)

// IngestReport summarizes one pipeline run.
type IngestReport struct {
	RunID          uuid.UUID             `json:"run_id"`
	StartedAt      time.Time             `json:"started_at"`
	Elapsed        time.Duration         `json:"elapsed"`
	FetchedCount   int                   `json:"fetched_count"`
	KeptCount      int                   `json:"kept_count"`
	UniqueCount    int                   `json:"unique_count"`
	DuplicateCount int                   `json:"duplicate_count"`
	StoredCount    int                   `json:"stored_count"`
	FailedSources  []domain.Source       `json:"failed_sources,omitempty"`
	PerSource      map[domain.Source]int `json:"per_source"`
}

// IngestConfig tunes one pipeline run.
type IngestConfig struct {
	MaxItemsPerSource int
	MinStoreScore     float64
}

type IngestService interface {
	// Run executes the full pipeline: fetch, score, deduplicate, store.
	// Individual source failures are reported, not fatal; a run with zero
	// fetched articles stops before any scoring or storage work.
	Run(ctx context.Context) (*IngestReport, error)
}

type ingestService struct {
	registry    *fetcher.Registry
	scoring     ScoringService
	dedup       DedupService
	articleRepo domain.ArticleRepository
	txManager   domain.TransactionManager
	config      IngestConfig
	clog        *logger.ContextLogger
}

func NewIngestService(
	registry *fetcher.Registry,
	scoring ScoringService,
	dedup DedupService,
	articleRepo domain.ArticleRepository,
	txManager domain.TransactionManager,
	config IngestConfig,
	log *slog.Logger,
) IngestService {
	return &ingestService{
		registry:    registry,
		scoring:     scoring,
		dedup:       dedup,
		articleRepo: articleRepo,
		txManager:   txManager,
		config:      config,
		clog:        logger.NewContextLogger(log),
	}
}

func (s *ingestService) Run(ctx context.Context) (*IngestReport, error) {
	report := &IngestReport{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		PerSource: make(map[domain.Source]int),
	}
	ctx = logger.WithRunID(ctx, report.RunID.String())
	log := s.clog.WithContext(ctx)

	log.Info("ingest_run_started",
		slog.Int("source_count", len(s.registry.All())),
	)

	articles := s.fetchAll(logger.WithStage(ctx, "fetch"), report)
	report.FetchedCount = len(articles)

	if len(articles) == 0 {
		report.Elapsed = time.Since(report.StartedAt)
		log.Info("ingest_run_empty")
		return report, nil
	}

	kept := s.scoring.ScoreAndFilter(logger.WithStage(ctx, "score"), articles, s.config.MinStoreScore)
	report.KeptCount = len(kept)

	unique, duplicates := s.dedup.Partition(logger.WithStage(ctx, "dedup"), kept)
	report.UniqueCount = len(unique)
	report.DuplicateCount = len(duplicates)

	stored, err := s.store(logger.WithStage(ctx, "store"), unique, duplicates)
	if err != nil {
		return nil, fmt.Errorf("failed to store articles: %w", err)
	}
	report.StoredCount = stored
	report.Elapsed = time.Since(report.StartedAt)

	log.Info("ingest_run_completed",
		slog.Int("fetched", report.FetchedCount),
		slog.Int("kept", report.KeptCount),
		slog.Int("unique", report.UniqueCount),
		slog.Int("duplicates", report.DuplicateCount),
		slog.Int("stored", report.StoredCount),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// fetchAll runs every registered fetcher concurrently. Invalid articles are
// dropped at the door; failed sources are recorded on the report.
func (s *ingestService) fetchAll(ctx context.Context, report *IngestReport) []domain.Article {
	var mu sync.Mutex
	var articles []domain.Article

	g, gctx := errgroup.WithContext(ctx)

	for _, f := range s.registry.All() {
		f := f
		g.Go(func() error {
			log := s.clog.WithContext(logger.WithSource(gctx, string(f.Source())))

			fetched, err := f.Fetch(gctx, s.config.MaxItemsPerSource)
			if err != nil {
				log.Error("source_fetch_failed",
					slog.String("error", err.Error()),
				)
				mu.Lock()
				report.FailedSources = append(report.FailedSources, f.Source())
				mu.Unlock()
				return nil
			}

			valid := fetched[:0]
			for i := range fetched {
				if err := fetched[i].Validate(); err != nil {
					log.Warn("article_rejected",
						slog.String("title", fetched[i].Title),
						slog.String("error", err.Error()),
					)
					continue
				}
				valid = append(valid, fetched[i])
			}

			mu.Lock()
			articles = append(articles, valid...)
			report.PerSource[f.Source()] = len(valid)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return articles
}

// store writes unique articles before duplicates so duplicate_of references
// resolve within the same transaction.
func (s *ingestService) store(ctx context.Context, unique, duplicates []domain.Article) (int, error) {
	stored := 0
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		for i := range unique {
			if err := s.articleRepo.Upsert(ctx, &unique[i]); err != nil {
				return fmt.Errorf("failed to upsert article %s: %w", unique[i].ID, err)
			}
			stored++
		}
		for i := range duplicates {
			if err := s.articleRepo.Upsert(ctx, &duplicates[i]); err != nil {
				return fmt.Errorf("failed to upsert duplicate %s: %w", duplicates[i].ID, err)
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}
