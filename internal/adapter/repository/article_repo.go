package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type articleRepository struct {
	pool *pgxpool.Pool
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(pool *pgxpool.Pool) domain.ArticleRepository {
	return &articleRepository{pool: pool}
}

type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func (r *articleRepository) getExecutor(ctx context.Context) executor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

const articleColumns = `
	id, source, source_id, title, content, url, author,
	published_at, fetched_at, summary, relevance_score,
	categories, key_points, embedding, is_duplicate, duplicate_of
`

func (r *articleRepository) Upsert(ctx context.Context, article *domain.Article) error {
	query := `
		INSERT INTO articles (
			id, source, source_id, title, content, url, author,
			published_at, fetched_at, summary, relevance_score,
			categories, key_points, embedding, is_duplicate, duplicate_of
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			author = EXCLUDED.author,
			published_at = EXCLUDED.published_at,
			fetched_at = EXCLUDED.fetched_at,
			summary = EXCLUDED.summary,
			relevance_score = EXCLUDED.relevance_score,
			categories = EXCLUDED.categories,
			key_points = EXCLUDED.key_points,
			embedding = EXCLUDED.embedding,
			is_duplicate = EXCLUDED.is_duplicate,
			duplicate_of = EXCLUDED.duplicate_of
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		article.ID, article.Source, article.SourceID, article.Title,
		article.Content, article.URL, article.Author,
		article.PublishedAt, article.FetchedAt, article.Summary,
		article.RelevanceScore, article.Categories, article.KeyPoints,
		article.Embedding, article.IsDuplicate, article.DuplicateOf,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}
	return nil
}

func (r *articleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	row := r.getExecutor(ctx).QueryRow(ctx, query, id)

	article, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}
	return article, nil
}

func (r *articleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE 1=1`
	args := []interface{}{}
	argn := 0

	if filter.Source != nil {
		argn++
		query += fmt.Sprintf(" AND source = $%d", argn)
		args = append(args, *filter.Source)
	}
	if filter.MinRelevanceScore != nil {
		argn++
		query += fmt.Sprintf(" AND relevance_score >= $%d", argn)
		args = append(args, *filter.MinRelevanceScore)
	}
	if filter.Since != nil {
		argn++
		query += fmt.Sprintf(" AND published_at >= $%d", argn)
		args = append(args, *filter.Since)
	}
	if !filter.IncludeDuplicates {
		query += " AND is_duplicate = FALSE"
	}

	query += " ORDER BY published_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argn++
	query += fmt.Sprintf(" LIMIT $%d", argn)
	args = append(args, limit)

	if filter.Offset > 0 {
		argn++
		query += fmt.Sprintf(" OFFSET $%d", argn)
		args = append(args, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (r *articleRepository) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE url = $1 AND is_duplicate = FALSE
		ORDER BY published_at DESC
		LIMIT 1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, url)

	article, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}
	return article, nil
}

func (r *articleRepository) SearchSimilar(ctx context.Context, query pgvector.Vector, threshold float64, since time.Time, limit int) ([]domain.SimilarMatch, error) {
	sql := `
		SELECT id, source, source_id, title, url, published_at, 1 - (embedding <=> $1) AS similarity
		FROM articles
		WHERE embedding IS NOT NULL
		  AND is_duplicate = FALSE
		  AND published_at >= $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`
	rows, err := r.getExecutor(ctx).Query(ctx, sql, query, since, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar articles: %w", err)
	}
	defer rows.Close()

	var matches []domain.SimilarMatch
	for rows.Next() {
		var m domain.SimilarMatch
		if err := rows.Scan(&m.ArticleID, &m.Source, &m.SourceID, &m.Title, &m.URL, &m.PublishedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan similar match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate similar matches: %w", err)
	}
	return matches, nil
}

func (r *articleRepository) TopForDigest(ctx context.Context, since time.Time, minScore float64, limit int) ([]domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE is_duplicate = FALSE
		  AND relevance_score >= $1
		  AND published_at >= $2
		ORDER BY relevance_score DESC, published_at DESC
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, minScore, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest candidates: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (r *articleRepository) Stats(ctx context.Context) (*domain.DedupStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_duplicate)
		FROM articles
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query)

	var stats domain.DedupStats
	if err := row.Scan(&stats.TotalArticles, &stats.DuplicateArticles); err != nil {
		return nil, fmt.Errorf("failed to scan stats: %w", err)
	}
	return &stats, nil
}

func scanArticle(row pgx.Row) (*domain.Article, error) {
	var a domain.Article
	var author, summary pgtype.Text
	var score pgtype.Float8
	var embedding *pgvector.Vector
	var duplicateOf *uuid.UUID

	err := row.Scan(
		&a.ID, &a.Source, &a.SourceID, &a.Title, &a.Content, &a.URL, &author,
		&a.PublishedAt, &a.FetchedAt, &summary, &score,
		&a.Categories, &a.KeyPoints, &embedding, &a.IsDuplicate, &duplicateOf,
	)
	if err != nil {
		return nil, err
	}

	a.Author = author.String
	a.Summary = summary.String
	if score.Valid {
		v := score.Float64
		a.RelevanceScore = &v
	}
	a.Embedding = embedding
	a.DuplicateOf = duplicateOf

	return &a, nil
}

func collectArticles(rows pgx.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return articles, nil
}
