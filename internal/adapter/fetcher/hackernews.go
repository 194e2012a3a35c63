package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

// hnStoryConcurrency bounds parallel item lookups against the Firebase API.
const hnStoryConcurrency = 5

// aiKeywords filters HackerNews stories down to machine learning content
// before any story reaches the scoring stage.
var aiKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "ml", "deep learning",
	"neural network", "neural", "nlp", "computer vision",
	"gpt", "bert", "transformer", "llm", "large language model",
	"generative ai", "genai", "chatgpt", "claude", "gemini",
	"stable diffusion", "diffusion model",
	"openai", "anthropic", "deepmind", "hugging face",
	"pytorch", "tensorflow",
	"reinforcement learning", "fine-tuning", "prompt engineering",
	"language model", "text generation", "image generation",
	"arxiv", "dataset", "benchmark", "model architecture",
}

type hnStory struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	By      string `json:"by"`
	Time    int64  `json:"time"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

// HackerNewsFetcher pulls top stories from the HackerNews Firebase API and
// keeps only keyword-relevant ones.
type HackerNewsFetcher struct {
	baseURL string
	client  *http.Client
	limiter *ratelimit.Manager
	logger  *slog.Logger
	health  *healthTracker
}

func NewHackerNewsFetcher(limiter *ratelimit.Manager, logger *slog.Logger) *HackerNewsFetcher {
	return &HackerNewsFetcher{
		baseURL: hnBaseURL,
		client:  httpclient.NewPooledClient(30 * time.Second),
		limiter: limiter,
		logger:  logger,
		health:  newHealthTracker(domain.SourceHackerNews, limiter),
	}
}

func (f *HackerNewsFetcher) Source() domain.Source {
	return domain.SourceHackerNews
}

func (f *HackerNewsFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *HackerNewsFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceHackerNews))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceHackerNews, Err: err}
	}

	ids, err := f.fetchTopStoryIDs(ctx)
	if err != nil {
		breaker.RecordFailure()
		f.health.recordError()
		return nil, &domain.FetchError{Source: domain.SourceHackerNews, Err: err}
	}
	breaker.RecordSuccess()

	// Over-fetch to leave room for keyword filtering.
	fetchCount := maxItems * 3
	if fetchCount > len(ids) {
		fetchCount = len(ids)
	}

	stories := f.fetchStories(ctx, ids[:fetchCount])

	now := time.Now().UTC()
	articles := make([]domain.Article, 0, maxItems)
	for _, story := range stories {
		if len(articles) >= maxItems {
			break
		}
		if story.Deleted || story.Dead || story.Type != "story" || story.Title == "" {
			continue
		}
		if !isAIRelevant(story) {
			continue
		}

		url := story.URL
		if url == "" {
			url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}

		articles = append(articles, domain.Article{
			ID:          uuid.New(),
			Source:      domain.SourceHackerNews,
			SourceID:    strconv.Itoa(story.ID),
			Title:       truncate(strings.TrimSpace(story.Title), domain.MaxTitleLength),
			Content:     truncate(stripToText(story.Text), domain.MaxContentLength),
			URL:         url,
			Author:      story.By,
			PublishedAt: time.Unix(story.Time, 0).UTC(),
			FetchedAt:   now,
		})
	}

	f.logger.Info("hackernews_fetch_completed",
		slog.Int("fetched_stories", len(stories)),
		slog.Int("relevant_articles", len(articles)),
	)
	return articles, nil
}

func (f *HackerNewsFetcher) fetchTopStoryIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := f.getJSON(ctx, f.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("failed to fetch top stories: %w", err)
	}
	return ids, nil
}

// fetchStories loads items concurrently. Individual failures are logged and
// skipped so one bad item never aborts the whole fetch.
func (f *HackerNewsFetcher) fetchStories(ctx context.Context, ids []int) []hnStory {
	var mu sync.Mutex
	stories := make([]hnStory, 0, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hnStoryConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			var story hnStory
			url := fmt.Sprintf("%s/item/%d.json", f.baseURL, id)
			if err := f.getJSON(gctx, url, &story); err != nil {
				f.health.recordError()
				f.logger.Warn("hackernews_story_fetch_failed",
					slog.Int("story_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			stories = append(stories, story)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return stories
}

func (f *HackerNewsFetcher) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx, string(domain.SourceHackerNews), 1); err != nil {
		return fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	f.health.recordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call hackernews: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hackernews returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isAIRelevant(story hnStory) bool {
	haystack := strings.ToLower(story.Title + " " + story.Text + " " + story.URL)
	for _, keyword := range aiKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

var _ domain.Fetcher = (*HackerNewsFetcher)(nil)
