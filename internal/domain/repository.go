package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ArticleFilter narrows List queries.
type ArticleFilter struct {
	Source            *Source
	MinRelevanceScore *float64
	Since             *time.Time
	IncludeDuplicates bool
	Limit             int
	Offset            int
}

// SimilarMatch is one candidate returned by a vector similarity search,
// ordered by descending cosine similarity.
type SimilarMatch struct {
	ArticleID   uuid.UUID
	Source      Source
	SourceID    string
	Title       string
	URL         string
	PublishedAt time.Time
	Similarity  float64
}

// DedupStats summarizes stored duplicate ratios for operational reporting.
type DedupStats struct {
	TotalArticles     int64
	DuplicateArticles int64
}

// ArticleRepository persists articles. Upsert is keyed on (source, source_id):
// re-running ingestion with overlapping items updates mutable fields in place
// instead of creating duplicate rows.
type ArticleRepository interface {
	Upsert(ctx context.Context, article *Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]Article, error)

	// FindByURL returns the newest non-duplicate article with the exact URL.
	// Returns nil, nil when no match exists.
	FindByURL(ctx context.Context, url string) (*Article, error)

	// SearchSimilar returns non-duplicate articles published after since whose
	// embedding cosine similarity with query meets threshold, ordered by
	// descending similarity, capped to limit.
	SearchSimilar(ctx context.Context, query pgvector.Vector, threshold float64, since time.Time, limit int) ([]SimilarMatch, error)

	// TopForDigest returns non-duplicate articles published within the window
	// scoring at or above minScore, ordered by (relevance_score, published_at)
	// descending, capped to limit.
	TopForDigest(ctx context.Context, since time.Time, minScore float64, limit int) ([]Article, error)

	Stats(ctx context.Context) (*DedupStats, error)
}

// DigestRepository persists digests with one-per-calendar-date semantics.
type DigestRepository interface {
	// UpsertForDate stores the digest, replacing any digest already stored
	// for the same calendar date.
	UpsertForDate(ctx context.Context, digest *Digest) error
	GetByDate(ctx context.Context, date time.Time) (*Digest, error)
	GetLatest(ctx context.Context) (*Digest, error)
}

// TransactionManager runs a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
