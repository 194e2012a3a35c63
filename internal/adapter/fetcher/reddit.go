package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

const redditBaseURL = "https://www.reddit.com"

// Quality thresholds: a post needs real upvotes or an active discussion, and
// a mostly positive reception, before it is worth scoring.
const (
	redditMinUpvotes     = 50
	redditMinComments    = 10
	redditMinUpvoteRatio = 0.7
	redditMinTitleLength = 10
)

// redditSelftextLimit truncates long self posts before scoring.
const redditSelftextLimit = 500

// defaultSubreddits are polled when no subreddit list is configured.
var defaultSubreddits = []string{"LocalLLaMA"}

type redditPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Author        string  `json:"author"`
	Permalink     string  `json:"permalink"`
	CreatedUTC    float64 `json:"created_utc"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	Stickied      bool    `json:"stickied"`
	LinkFlairText string  `json:"link_flair_text"`
	Subreddit     string  `json:"subreddit"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditFetcher polls AI subreddits through Reddit's public JSON listings
// and keeps only posts that cleared the community's quality bar.
type RedditFetcher struct {
	baseURL    string
	subreddits []string
	client     *http.Client
	limiter    *ratelimit.Manager
	logger     *slog.Logger
	health     *healthTracker
}

func NewRedditFetcher(subreddits []string, limiter *ratelimit.Manager, logger *slog.Logger) *RedditFetcher {
	if len(subreddits) == 0 {
		subreddits = defaultSubreddits
	}
	return &RedditFetcher{
		baseURL:    redditBaseURL,
		subreddits: subreddits,
		client:     httpclient.NewPooledClient(30 * time.Second),
		limiter:    limiter,
		logger:     logger,
		health:     newHealthTracker(domain.SourceReddit, limiter),
	}
}

func (f *RedditFetcher) Source() domain.Source {
	return domain.SourceReddit
}

func (f *RedditFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *RedditFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceReddit))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceReddit, Err: err}
	}

	var (
		posts      []redditPost
		failedSubs int
	)
	for _, sub := range f.subreddits {
		subPosts, err := f.fetchSubreddit(ctx, sub)
		if err != nil {
			failedSubs++
			f.health.recordError()
			f.logger.Warn("reddit_subreddit_fetch_failed",
				slog.String("subreddit", sub),
				slog.String("error", err.Error()),
			)
			continue
		}
		posts = append(posts, subPosts...)
	}
	if failedSubs == len(f.subreddits) {
		breaker.RecordFailure()
		return nil, &domain.FetchError{
			Source: domain.SourceReddit,
			Err:    fmt.Errorf("all %d subreddits failed", len(f.subreddits)),
		}
	}
	breaker.RecordSuccess()

	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(posts))
	engagement := make(map[uuid.UUID]float64, len(posts))
	articles := make([]domain.Article, 0, len(posts))
	for _, post := range posts {
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		if !isQualityPost(post) {
			continue
		}

		article := f.postToArticle(post, now)
		engagement[article.ID] = float64(post.Score)*post.UpvoteRatio + float64(post.NumComments)*2
		articles = append(articles, article)
	}

	// Most engaged posts first.
	sort.Slice(articles, func(i, j int) bool {
		return engagement[articles[i].ID] > engagement[articles[j].ID]
	})
	if len(articles) > maxItems {
		articles = articles[:maxItems]
	}

	f.logger.Info("reddit_fetch_completed",
		slog.Int("subreddits", len(f.subreddits)),
		slog.Int("failed_subreddits", failedSubs),
		slog.Int("articles", len(articles)),
	)
	return articles, nil
}

// fetchSubreddit combines the hot listing with the day's top posts.
func (f *RedditFetcher) fetchSubreddit(ctx context.Context, sub string) ([]redditPost, error) {
	hot, hotErr := f.fetchListing(ctx, fmt.Sprintf("%s/r/%s/hot.json?limit=50", f.baseURL, sub))
	topDay, topErr := f.fetchListing(ctx, fmt.Sprintf("%s/r/%s/top.json?t=day&limit=25", f.baseURL, sub))
	if hotErr != nil && topErr != nil {
		return nil, hotErr
	}
	return append(hot, topDay...), nil
}

func (f *RedditFetcher) fetchListing(ctx context.Context, url string) ([]redditPost, error) {
	if err := f.limiter.Wait(ctx, string(domain.SourceReddit), 1); err != nil {
		return nil, fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	f.health.recordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call reddit: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status: %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func (f *RedditFetcher) postToArticle(post redditPost, fetchedAt time.Time) domain.Article {
	content := ""
	if post.LinkFlairText != "" {
		content = "[" + post.LinkFlairText + "] "
	}
	selftext := post.Selftext
	if len(selftext) > redditSelftextLimit {
		selftext = truncate(selftext, redditSelftextLimit) + "..."
	}
	content += selftext

	return domain.Article{
		ID:          uuid.New(),
		Source:      domain.SourceReddit,
		SourceID:    post.ID,
		Title:       truncate(post.Title, domain.MaxTitleLength),
		Content:     truncate(content, domain.MaxContentLength),
		URL:         f.baseURL + post.Permalink,
		Author:      post.Author,
		PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		FetchedAt:   fetchedAt,
	}
}

func isQualityPost(post redditPost) bool {
	if post.Stickied {
		return false
	}
	if post.Selftext == "[deleted]" || post.Selftext == "[removed]" {
		return false
	}
	if post.Score < redditMinUpvotes && post.NumComments < redditMinComments {
		return false
	}
	if post.UpvoteRatio < redditMinUpvoteRatio {
		return false
	}
	return len(post.Title) > redditMinTitleLength
}

var _ domain.Fetcher = (*RedditFetcher)(nil)
