package newshttp

import (
	"time"

	"github.com/google/uuid"

	"news-orchestrator/internal/domain"
)

type articleResponse struct {
	ID             uuid.UUID  `json:"id"`
	Source         string     `json:"source"`
	SourceID       string     `json:"source_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content,omitempty"`
	URL            string     `json:"url"`
	Author         string     `json:"author,omitempty"`
	PublishedAt    time.Time  `json:"published_at"`
	FetchedAt      time.Time  `json:"fetched_at"`
	Summary        string     `json:"summary,omitempty"`
	RelevanceScore *float64   `json:"relevance_score,omitempty"`
	Categories     []string   `json:"categories,omitempty"`
	KeyPoints      []string   `json:"key_points,omitempty"`
	IsDuplicate    bool       `json:"is_duplicate"`
	DuplicateOf    *uuid.UUID `json:"duplicate_of,omitempty"`
}

func toArticleResponse(a *domain.Article) articleResponse {
	return articleResponse{
		ID:             a.ID,
		Source:         string(a.Source),
		SourceID:       a.SourceID,
		Title:          a.Title,
		Content:        a.Content,
		URL:            a.URL,
		Author:         a.Author,
		PublishedAt:    a.PublishedAt,
		FetchedAt:      a.FetchedAt,
		Summary:        a.Summary,
		RelevanceScore: a.RelevanceScore,
		Categories:     a.Categories,
		KeyPoints:      a.KeyPoints,
		IsDuplicate:    a.IsDuplicate,
		DuplicateOf:    a.DuplicateOf,
	}
}

type digestResponse struct {
	ID                     uuid.UUID   `json:"id"`
	DigestDate             string      `json:"digest_date"`
	SummaryText            string      `json:"summary_text"`
	KeyThemes              []string    `json:"key_themes,omitempty"`
	NotableDevelopments    []string    `json:"notable_developments,omitempty"`
	TotalArticlesProcessed int         `json:"total_articles_processed"`
	TopArticleIDs          []uuid.UUID `json:"top_article_ids,omitempty"`
	AudioURL               *string     `json:"audio_url,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
}

func toDigestResponse(d *domain.Digest) digestResponse {
	return digestResponse{
		ID:                     d.ID,
		DigestDate:             d.DigestDate.Format("2006-01-02"),
		SummaryText:            d.SummaryText,
		KeyThemes:              d.KeyThemes,
		NotableDevelopments:    d.NotableDevelopments,
		TotalArticlesProcessed: d.TotalArticlesProcessed,
		TopArticleIDs:          d.TopArticleIDs,
		AudioURL:               d.AudioURL,
		CreatedAt:              d.CreatedAt,
	}
}
