package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

// userAgent is browser-like because some feed hosts block generic bots.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RSSFetcher pulls articles from a configured list of RSS/Atom feeds.
type RSSFetcher struct {
	feedURLs []string
	parser   *gofeed.Parser
	client   *http.Client
	limiter  *ratelimit.Manager
	logger   *slog.Logger
	health   *healthTracker
}

func NewRSSFetcher(feedURLs []string, limiter *ratelimit.Manager, logger *slog.Logger) *RSSFetcher {
	return &RSSFetcher{
		feedURLs: feedURLs,
		parser:   gofeed.NewParser(),
		client:   httpclient.NewPooledClient(30 * time.Second),
		limiter:  limiter,
		logger:   logger,
		health:   newHealthTracker(domain.SourceRSS, limiter),
	}
}

func (f *RSSFetcher) Source() domain.Source {
	return domain.SourceRSS
}

func (f *RSSFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *RSSFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceRSS))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceRSS, Err: err}
	}

	var articles []domain.Article
	var feedErrs int

	for _, feedURL := range f.feedURLs {
		if len(articles) >= maxItems {
			break
		}
		items, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			feedErrs++
			f.health.recordError()
			f.logger.Warn("rss_feed_fetch_failed",
				slog.String("feed_url", feedURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		articles = append(articles, items...)
	}

	if feedErrs == len(f.feedURLs) && len(f.feedURLs) > 0 {
		breaker.RecordFailure()
		return nil, &domain.FetchError{
			Source: domain.SourceRSS,
			Err:    fmt.Errorf("all %d feeds failed", len(f.feedURLs)),
		}
	}
	breaker.RecordSuccess()

	if len(articles) > maxItems {
		articles = articles[:maxItems]
	}

	f.logger.Info("rss_fetch_completed",
		slog.Int("article_count", len(articles)),
		slog.Int("feed_count", len(f.feedURLs)),
		slog.Int("failed_feeds", feedErrs),
	)
	return articles, nil
}

func (f *RSSFetcher) fetchFeed(ctx context.Context, feedURL string) ([]domain.Article, error) {
	if err := f.limiter.Wait(ctx, string(domain.SourceRSS), 1); err != nil {
		return nil, fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	f.health.recordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status: %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	now := time.Now().UTC()

	for _, entry := range feed.Items {
		if entry.Link == "" || strings.TrimSpace(entry.Title) == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		content := entry.Description
		if content == "" {
			content = entry.Content
		}

		author := ""
		if len(entry.Authors) > 0 {
			author = entry.Authors[0].Name
		}

		articles = append(articles, domain.Article{
			ID:          uuid.New(),
			Source:      domain.SourceRSS,
			SourceID:    stableID(entry.Link),
			Title:       truncate(strings.TrimSpace(entry.Title), domain.MaxTitleLength),
			Content:     truncate(stripToText(content), domain.MaxContentLength),
			URL:         entry.Link,
			Author:      author,
			PublishedAt: published,
			FetchedAt:   now,
		})
	}
	return articles, nil
}

// stableID derives a stable source ID from the item URL so re-fetching the
// same feed maps to the same row.
func stableID(link string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(link)))[:16]
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// stripToText collapses whitespace in feed HTML snippets. Full HTML
// sanitization is left to the scoring prompt which treats content as text.
func stripToText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ domain.Fetcher = (*RSSFetcher)(nil)
