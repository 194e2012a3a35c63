package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/retry"
)

// maxEmbedChars caps input length before the encoder call; the backing model
// has token limits well below this.
const maxEmbedChars = 8000

type EmbeddingService interface {
	// Embed returns a unit-length embedding for the text. Results are cached
	// on the trimmed, lowercased text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in order. Cached entries are not re-encoded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	CacheLen() int
}

type embeddingService struct {
	encoder domain.VectorEncoder
	cache   *lru.Cache[string, []float32]
	retrier *retry.Retrier
	dim     int
	logger  *slog.Logger
}

func NewEmbeddingService(encoder domain.VectorEncoder, cacheSize, dim int, logger *slog.Logger) (EmbeddingService, error) {
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &embeddingService{
		encoder: encoder,
		cache:   cache,
		retrier: retry.New(retry.DefaultConfig(), nil, logger),
		dim:     dim,
		logger:  logger,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", domain.ErrInvalidInput, i)
		}
		keys[i] = cacheKey(text)
		if cached, ok := s.cache.Get(keys[i]); ok {
			results[i] = cached
			continue
		}
		missing = append(missing, truncateForEmbed(text))
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		var encoded [][]float32
		err := s.retrier.Do(ctx, func() error {
			var encodeErr error
			encoded, encodeErr = s.encoder.Encode(ctx, missing)
			return encodeErr
		})
		if err != nil {
			return nil, &domain.EmbeddingError{Err: err}
		}
		if len(encoded) != len(missing) {
			return nil, &domain.EmbeddingError{
				Err: fmt.Errorf("encoder returned %d vectors for %d texts", len(encoded), len(missing)),
			}
		}

		for j, vector := range encoded {
			if len(vector) != s.dim {
				return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dim)
			}
			normalized := normalize(vector)
			i := missingIdx[j]
			results[i] = normalized
			s.cache.Add(keys[i], normalized)
		}
	}

	s.logger.Debug("embed_batch_completed",
		slog.Int("text_count", len(texts)),
		slog.Int("cache_misses", len(missing)),
	)
	return results, nil
}

func (s *embeddingService) CacheLen() int {
	return s.cache.Len()
}

func cacheKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// truncateForEmbed cuts over-long input on a rune boundary so the encoder
// never receives a split UTF-8 sequence.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := maxEmbedChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// normalize scales the vector to unit length so inner product equals cosine
// similarity. Zero vectors are returned unchanged.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vector
	}
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
