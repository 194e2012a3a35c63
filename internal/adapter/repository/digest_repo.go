package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type digestRepository struct {
	pool *pgxpool.Pool
}

// NewDigestRepository creates a new DigestRepository.
func NewDigestRepository(pool *pgxpool.Pool) domain.DigestRepository {
	return &digestRepository{pool: pool}
}

func (r *digestRepository) getExecutor(ctx context.Context) executor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

const digestColumns = `
	id, digest_date, summary_text, key_themes, notable_developments,
	total_articles_processed, top_article_ids, audio_url, created_at
`

func (r *digestRepository) UpsertForDate(ctx context.Context, digest *domain.Digest) error {
	query := `
		INSERT INTO digests (
			id, digest_date, summary_text, key_themes, notable_developments,
			total_articles_processed, top_article_ids, audio_url, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (digest_date) DO UPDATE SET
			summary_text = EXCLUDED.summary_text,
			key_themes = EXCLUDED.key_themes,
			notable_developments = EXCLUDED.notable_developments,
			total_articles_processed = EXCLUDED.total_articles_processed,
			top_article_ids = EXCLUDED.top_article_ids,
			audio_url = EXCLUDED.audio_url,
			created_at = EXCLUDED.created_at
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		digest.ID, digest.DigestDate, digest.SummaryText,
		digest.KeyThemes, digest.NotableDevelopments,
		digest.TotalArticlesProcessed, digest.TopArticleIDs,
		digest.AudioURL, digest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert digest: %w", err)
	}
	return nil
}

func (r *digestRepository) GetByDate(ctx context.Context, date time.Time) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests WHERE digest_date = $1`
	row := r.getExecutor(ctx).QueryRow(ctx, query, date)

	digest, err := scanDigest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan digest: %w", err)
	}
	return digest, nil
}

func (r *digestRepository) GetLatest(ctx context.Context) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests ORDER BY digest_date DESC LIMIT 1`
	row := r.getExecutor(ctx).QueryRow(ctx, query)

	digest, err := scanDigest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan digest: %w", err)
	}
	return digest, nil
}

func scanDigest(row pgx.Row) (*domain.Digest, error) {
	var d domain.Digest
	var audioURL pgtype.Text

	err := row.Scan(
		&d.ID, &d.DigestDate, &d.SummaryText, &d.KeyThemes,
		&d.NotableDevelopments, &d.TotalArticlesProcessed,
		&d.TopArticleIDs, &audioURL, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if audioURL.Valid {
		d.AudioURL = &audioURL.String
	}

	return &d, nil
}
