package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"news-orchestrator/internal/domain"
)

// similarMatchLimit caps candidates pulled per similarity probe.
const similarMatchLimit = 5

// DedupConfig tunes duplicate detection.
type DedupConfig struct {
	// SoftThreshold is the similarity above which corroborating signals
	// (same-day publication or near-identical titles) mark a duplicate.
	SoftThreshold float64
	// HardThreshold is the similarity above which a match is a duplicate
	// with no further checks.
	HardThreshold float64
	// Window bounds how far back similarity probes look.
	Window time.Duration
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		SoftThreshold: 0.85,
		HardThreshold: 0.95,
		Window:        48 * time.Hour,
	}
}

type DedupService interface {
	// FindDuplicate returns the canonical article ID when the article
	// duplicates stored content, nil when it is novel. Infrastructure
	// failures surface as errors; they are never reported as "no duplicate".
	FindDuplicate(ctx context.Context, article *domain.Article) (*uuid.UUID, error)

	// Partition splits a batch into unique articles and duplicates, with
	// duplicates annotated with their canonical article. Earlier batch
	// entries win over later ones. A failed check keeps the article in the
	// unique set; losing an article is worse than storing a duplicate.
	Partition(ctx context.Context, articles []domain.Article) (unique, duplicates []domain.Article)
}

type dedupService struct {
	articleRepo domain.ArticleRepository
	embedder    EmbeddingService
	config      DedupConfig
	logger      *slog.Logger
}

func NewDedupService(articleRepo domain.ArticleRepository, embedder EmbeddingService, config DedupConfig, logger *slog.Logger) DedupService {
	return &dedupService{
		articleRepo: articleRepo,
		embedder:    embedder,
		config:      config,
		logger:      logger,
	}
}

func (s *dedupService) FindDuplicate(ctx context.Context, article *domain.Article) (*uuid.UUID, error) {
	// URL match is the cheapest signal, so it runs first.
	existing, err := s.articleRepo.FindByURL(ctx, article.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check url duplicate: %w", err)
	}
	if existing != nil && existing.ID != article.ID && !sameSourceItem(article, existing.Source, existing.SourceID) {
		return &existing.ID, nil
	}

	if err := s.ensureEmbedding(ctx, article); err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-s.config.Window)
	matches, err := s.articleRepo.SearchSimilar(ctx, *article.Embedding, s.config.SoftThreshold, since, similarMatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar articles: %w", err)
	}

	for _, match := range matches {
		if match.ArticleID == article.ID || sameSourceItem(article, match.Source, match.SourceID) {
			continue
		}
		if s.isLikelyDuplicate(article, match.Similarity, match.Title, match.PublishedAt) {
			id := match.ArticleID
			return &id, nil
		}
	}
	return nil, nil
}

func (s *dedupService) Partition(ctx context.Context, articles []domain.Article) (unique, duplicates []domain.Article) {
	for i := range articles {
		article := articles[i]

		canonicalID, dup := s.checkAgainstBatch(ctx, &article, unique)
		if !dup {
			storedID, err := s.FindDuplicate(ctx, &article)
			if err != nil {
				s.logger.Warn("dedup_check_failed",
					slog.String("article_id", article.ID.String()),
					slog.String("title", article.Title),
					slog.String("error", err.Error()),
				)
				unique = append(unique, article)
				continue
			}
			canonicalID, dup = storedID, storedID != nil
		}

		if dup {
			article.IsDuplicate = true
			article.DuplicateOf = canonicalID
			duplicates = append(duplicates, article)
			continue
		}
		unique = append(unique, article)
	}

	s.logger.Info("dedup_partition_completed",
		slog.Int("input_count", len(articles)),
		slog.Int("unique_count", len(unique)),
		slog.Int("duplicate_count", len(duplicates)),
	)
	return unique, duplicates
}

// checkAgainstBatch compares an article against earlier accepted batch
// members, which are not yet visible to repository searches.
func (s *dedupService) checkAgainstBatch(ctx context.Context, article *domain.Article, accepted []domain.Article) (*uuid.UUID, bool) {
	for i := range accepted {
		prior := &accepted[i]
		if sameSourceItem(article, prior.Source, prior.SourceID) {
			continue
		}
		if prior.URL == article.URL {
			id := prior.ID
			return &id, true
		}
	}

	if err := s.ensureEmbedding(ctx, article); err != nil {
		s.logger.Warn("dedup_batch_embed_failed",
			slog.String("article_id", article.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	for i := range accepted {
		prior := &accepted[i]
		if prior.Embedding == nil || sameSourceItem(article, prior.Source, prior.SourceID) {
			continue
		}
		similarity := cosineSimilarity(article.Embedding.Slice(), prior.Embedding.Slice())
		if s.isLikelyDuplicate(article, similarity, prior.Title, prior.PublishedAt) {
			id := prior.ID
			return &id, true
		}
	}
	return nil, false
}

func (s *dedupService) ensureEmbedding(ctx context.Context, article *domain.Article) error {
	if article.Embedding != nil {
		return nil
	}
	// The title is repeated because it dominates similarity for news items.
	text := fmt.Sprintf("%s. %s. %s", article.Title, article.Title, article.Content)
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed article: %w", err)
	}
	v := pgvector.NewVector(vector)
	article.Embedding = &v
	return nil
}

func (s *dedupService) isLikelyDuplicate(article *domain.Article, similarity float64, matchTitle string, matchPublishedAt time.Time) bool {
	if similarity > s.config.HardThreshold {
		return true
	}
	if similarity < s.config.SoftThreshold {
		return false
	}
	if sameUTCDate(article.PublishedAt, matchPublishedAt) {
		return true
	}
	return domain.TitleSimilarity(article.Title, matchTitle) > 0.8
}

// sameSourceItem reports whether a candidate match refers to the same
// upstream item as the article. A re-fetched item carries a fresh ID but
// the same (source, source_id) upsert key, and both records resolve to one
// stored row, so treating them as duplicates of each other would mark that
// row a duplicate of itself.
func sameSourceItem(article *domain.Article, source domain.Source, sourceID string) bool {
	return article.Source == source && article.SourceID == sourceID
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
