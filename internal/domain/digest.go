package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxDigestSummaryLength = 2000
	MaxDigestTopArticles   = 10
	MaxDigestKeyThemes     = 5
	MaxNotableDevelopments = 3
	MaxDigestInputArticles = 20
)

// Digest is a dated rollup of the highest-scoring recent articles. At most one
// digest exists per calendar date; regenerating replaces the previous one.
type Digest struct {
	ID                     uuid.UUID
	DigestDate             time.Time
	SummaryText            string
	KeyThemes              []string
	NotableDevelopments    []string
	TotalArticlesProcessed int
	TopArticleIDs          []uuid.UUID
	AudioURL               *string
	CreatedAt              time.Time
}
