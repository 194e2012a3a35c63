package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Source identifies the origin of an article. Each supported origin gets a
// first-class value; fetch adapters are registered against these keys.
type Source string

const (
	SourceArxiv       Source = "arxiv"
	SourceHackerNews  Source = "hackernews"
	SourceRSS         Source = "rss"
	SourceGitHub      Source = "github"
	SourceHuggingFace Source = "huggingface"
	SourceReddit      Source = "reddit"
)

// KnownSources lists every source the pipeline can be configured with.
var KnownSources = []Source{
	SourceArxiv,
	SourceHackerNews,
	SourceRSS,
	SourceGitHub,
	SourceHuggingFace,
	SourceReddit,
}

func (s Source) Valid() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

const (
	MaxTitleLength   = 500
	MaxContentLength = 10000
	MaxSummaryLength = 500
	MaxCategories    = 5
	MaxKeyPoints     = 5
)

// Article is the unit of content flowing through the pipeline. AI and dedup
// fields stay unset until the scoring and deduplication stages fill them;
// the two stages run sequentially and never share a mutable instance.
type Article struct {
	ID          uuid.UUID
	Source      Source
	SourceID    string
	Title       string
	Content     string
	URL         string
	Author      string
	PublishedAt time.Time
	FetchedAt   time.Time

	// Filled by the scoring stage.
	Summary        string
	RelevanceScore *float64
	Categories     []string
	KeyPoints      []string
	Embedding      *pgvector.Vector

	// Filled by the deduplication stage.
	IsDuplicate bool
	DuplicateOf *uuid.UUID
}

// Validate checks the invariants an article must satisfy before it enters the
// pipeline. Derived fields are not checked here; they are validated at the
// boundary that produces them.
func (a *Article) Validate() error {
	if !a.Source.Valid() {
		return fmt.Errorf("unknown source: %q", a.Source)
	}
	if strings.TrimSpace(a.SourceID) == "" {
		return fmt.Errorf("source_id is required")
	}
	if t := strings.TrimSpace(a.Title); t == "" || len(a.Title) > MaxTitleLength {
		return fmt.Errorf("title must be 1-%d characters", MaxTitleLength)
	}
	if !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://")
	}
	if a.PublishedAt.IsZero() {
		return fmt.Errorf("published_at is required")
	}
	if a.IsDuplicate && a.DuplicateOf == nil {
		return fmt.Errorf("duplicate article must reference its canonical article")
	}
	return nil
}

// Score returns the relevance score or 0 when the article has not been scored.
func (a *Article) Score() float64 {
	if a.RelevanceScore == nil {
		return 0
	}
	return *a.RelevanceScore
}

// ApplyAnalysis copies a validated analysis result onto the article.
func (a *Article) ApplyAnalysis(analysis *NewsAnalysis) {
	score := analysis.RelevanceScore
	a.Summary = analysis.Summary
	a.RelevanceScore = &score
	a.Categories = analysis.Categories
	a.KeyPoints = analysis.KeyPoints
}
