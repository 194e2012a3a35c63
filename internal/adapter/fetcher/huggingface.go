package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

const hfAPIURL = "https://huggingface.co/api"

// hfListLimit is how many models each listing (trending, recently modified)
// contributes before filtering.
const hfListLimit = 25

// hfDownloadFloor admits a model regardless of its tags once downloads pass
// this count.
const hfDownloadFloor = 1000

// hfRelevantTags are the pipeline tags that mark a model as newsworthy.
var hfRelevantTags = map[string]struct{}{
	"text-generation":              {},
	"text2text-generation":         {},
	"conversational":               {},
	"question-answering":           {},
	"summarization":                {},
	"translation":                  {},
	"text-classification":          {},
	"token-classification":         {},
	"feature-extraction":           {},
	"sentence-similarity":          {},
	"fill-mask":                    {},
	"image-classification":         {},
	"object-detection":             {},
	"image-to-text":                {},
	"text-to-image":                {},
	"automatic-speech-recognition": {},
	"text-to-speech":               {},
	"audio-classification":         {},
}

type hfModel struct {
	ID           string    `json:"id"`
	Tags         []string  `json:"tags"`
	Downloads    int       `json:"downloads"`
	Likes        int       `json:"likes"`
	PipelineTag  string    `json:"pipeline_tag"`
	LastModified time.Time `json:"lastModified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HuggingFaceFetcher surfaces trending and freshly updated models from the
// Hugging Face hub. An API key raises the rate limit but is not required.
type HuggingFaceFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *ratelimit.Manager
	logger  *slog.Logger
	health  *healthTracker
}

func NewHuggingFaceFetcher(apiKey string, limiter *ratelimit.Manager, logger *slog.Logger) *HuggingFaceFetcher {
	return &HuggingFaceFetcher{
		baseURL: hfAPIURL,
		apiKey:  apiKey,
		client:  httpclient.NewPooledClient(30 * time.Second),
		limiter: limiter,
		logger:  logger,
		health:  newHealthTracker(domain.SourceHuggingFace, limiter),
	}
}

func (f *HuggingFaceFetcher) Source() domain.Source {
	return domain.SourceHuggingFace
}

func (f *HuggingFaceFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *HuggingFaceFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceHuggingFace))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceHuggingFace, Err: err}
	}

	trending, trendingErr := f.listModels(ctx, "trending")
	recent, recentErr := f.listModels(ctx, "lastModified")
	if trendingErr != nil && recentErr != nil {
		breaker.RecordFailure()
		f.health.recordError()
		return nil, &domain.FetchError{Source: domain.SourceHuggingFace, Err: trendingErr}
	}
	breaker.RecordSuccess()

	if trendingErr != nil {
		f.logger.Warn("huggingface_trending_fetch_failed", slog.String("error", trendingErr.Error()))
	}
	if recentErr != nil {
		f.logger.Warn("huggingface_recent_fetch_failed", slog.String("error", recentErr.Error()))
	}

	// Trending models take priority when both listings name the same model.
	seen := make(map[string]struct{}, len(trending)+len(recent))
	merged := make([]hfModel, 0, len(trending)+len(recent))
	for _, model := range append(trending, recent...) {
		if _, dup := seen[model.ID]; dup || model.ID == "" {
			continue
		}
		seen[model.ID] = struct{}{}
		merged = append(merged, model)
	}

	now := time.Now().UTC()
	articles := make([]domain.Article, 0, len(merged))
	downloads := make(map[uuid.UUID]int, len(merged))
	for _, model := range merged {
		if !isRelevantModel(model) {
			continue
		}
		article := f.modelToArticle(model, now)
		downloads[article.ID] = model.Downloads
		articles = append(articles, article)
	}

	// Popular models first.
	sort.Slice(articles, func(i, j int) bool {
		return downloads[articles[i].ID] > downloads[articles[j].ID]
	})
	if len(articles) > maxItems {
		articles = articles[:maxItems]
	}

	f.logger.Info("huggingface_fetch_completed",
		slog.Int("listed_models", len(merged)),
		slog.Int("articles", len(articles)),
	)
	return articles, nil
}

func (f *HuggingFaceFetcher) listModels(ctx context.Context, sortBy string) ([]hfModel, error) {
	url := fmt.Sprintf("%s/models?sort=%s&limit=%d&full=true", f.baseURL, sortBy, hfListLimit)

	if err := f.limiter.Wait(ctx, string(domain.SourceHuggingFace), 1); err != nil {
		return nil, fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	f.health.recordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call huggingface: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface returned status: %d", resp.StatusCode)
	}

	var models []hfModel
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return models, nil
}

func (f *HuggingFaceFetcher) modelToArticle(model hfModel, fetchedAt time.Time) domain.Article {
	var content strings.Builder
	if len(model.Tags) > 0 {
		tags := model.Tags
		if len(tags) > 3 {
			tags = tags[:3]
		}
		content.WriteString("AI model for " + strings.Join(tags, ", ") + ".")
	} else {
		content.WriteString("New AI model on Hugging Face.")
	}
	if model.Downloads > 0 {
		fmt.Fprintf(&content, " %d downloads, %d likes.", model.Downloads, model.Likes)
	}

	author := "Hugging Face"
	if idx := strings.Index(model.ID, "/"); idx > 0 {
		author = model.ID[:idx]
	}

	publishedAt := model.LastModified
	if publishedAt.IsZero() {
		publishedAt = model.CreatedAt
	}
	if publishedAt.IsZero() {
		publishedAt = fetchedAt
	}

	return domain.Article{
		ID:          uuid.New(),
		Source:      domain.SourceHuggingFace,
		SourceID:    model.ID,
		Title:       truncate(model.ID, domain.MaxTitleLength),
		Content:     truncate(content.String(), domain.MaxContentLength),
		URL:         "https://huggingface.co/" + model.ID,
		Author:      author,
		PublishedAt: publishedAt.UTC(),
		FetchedAt:   fetchedAt,
	}
}

// isRelevantModel admits models with a newsworthy pipeline tag or enough
// downloads to matter, excluding dataset and space entries.
func isRelevantModel(model hfModel) bool {
	if strings.Contains(model.ID, "/datasets/") || strings.Contains(model.ID, "/spaces/") {
		return false
	}

	for _, tag := range model.Tags {
		if tag == "dataset" || tag == "space" {
			return false
		}
	}
	if _, ok := hfRelevantTags[model.PipelineTag]; ok {
		return true
	}
	for _, tag := range model.Tags {
		if _, ok := hfRelevantTags[tag]; ok {
			return true
		}
	}
	return model.Downloads > hfDownloadFloor
}

var _ domain.Fetcher = (*HuggingFaceFetcher)(nil)
