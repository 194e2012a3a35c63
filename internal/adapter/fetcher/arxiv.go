package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

const arxivAPIURL = "https://export.arxiv.org/api/query"

// defaultArxivCategories are the machine learning categories tracked when no
// override is configured.
var defaultArxivCategories = []string{"cs.AI", "cs.LG", "cs.CL"}

// ArxivFetcher pulls recent papers from the arXiv Atom API. The arXiv terms
// of use require slow polling, which the shared rate limiter enforces.
type ArxivFetcher struct {
	apiURL     string
	categories []string
	parser     *gofeed.Parser
	client     *http.Client
	limiter    *ratelimit.Manager
	logger     *slog.Logger
	health     *healthTracker
}

func NewArxivFetcher(categories []string, limiter *ratelimit.Manager, logger *slog.Logger) *ArxivFetcher {
	if len(categories) == 0 {
		categories = defaultArxivCategories
	}
	return &ArxivFetcher{
		apiURL:     arxivAPIURL,
		categories: categories,
		parser:     gofeed.NewParser(),
		client:     httpclient.NewPooledClient(30 * time.Second),
		limiter:    limiter,
		logger:     logger,
		health:     newHealthTracker(domain.SourceArxiv, limiter),
	}
}

func (f *ArxivFetcher) Source() domain.Source {
	return domain.SourceArxiv
}

func (f *ArxivFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *ArxivFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceArxiv))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceArxiv, Err: err}
	}

	if err := f.limiter.Wait(ctx, string(domain.SourceArxiv), 1); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceArxiv, Err: err}
	}
	f.health.recordRequest()

	terms := make([]string, 0, len(f.categories))
	for _, cat := range f.categories {
		terms = append(terms, "cat:"+cat)
	}

	params := url.Values{}
	params.Set("search_query", strings.Join(terms, " OR "))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", strconv.Itoa(maxItems))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.FetchError{Source: domain.SourceArxiv, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		breaker.RecordFailure()
		f.health.recordError()
		return nil, &domain.FetchError{
			Source: domain.SourceArxiv,
			Err:    fmt.Errorf("failed to call arxiv: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		breaker.RecordFailure()
		f.health.recordError()
		return nil, &domain.FetchError{
			Source: domain.SourceArxiv,
			Err:    fmt.Errorf("arxiv returned status: %d", resp.StatusCode),
		}
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		breaker.RecordFailure()
		f.health.recordError()
		return nil, &domain.FetchError{
			Source: domain.SourceArxiv,
			Err:    fmt.Errorf("failed to parse arxiv feed: %w", err),
		}
	}
	breaker.RecordSuccess()

	now := time.Now().UTC()
	articles := make([]domain.Article, 0, len(feed.Items))

	for _, entry := range feed.Items {
		if entry.Link == "" || strings.TrimSpace(entry.Title) == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}

		articles = append(articles, domain.Article{
			ID:          uuid.New(),
			Source:      domain.SourceArxiv,
			SourceID:    arxivID(entry.Link),
			Title:       truncate(stripToText(entry.Title), domain.MaxTitleLength),
			Content:     truncate(stripToText(entry.Description), domain.MaxContentLength),
			URL:         entry.Link,
			Author:      arxivAuthors(entry),
			PublishedAt: published,
			FetchedAt:   now,
		})
	}

	f.logger.Info("arxiv_fetch_completed",
		slog.Int("article_count", len(articles)),
		slog.Int("category_count", len(f.categories)),
	)
	return articles, nil
}

// arxivID extracts the bare paper ID from an abstract URL such as
// http://arxiv.org/abs/2401.12345v2.
func arxivID(link string) string {
	if idx := strings.LastIndex(link, "/abs/"); idx >= 0 {
		return link[idx+len("/abs/"):]
	}
	return link
}

// arxivAuthors joins the first three authors, appending an et-al marker for
// long author lists.
func arxivAuthors(entry *gofeed.Item) string {
	names := make([]string, 0, 3)
	for _, a := range entry.Authors {
		if len(names) == 3 {
			break
		}
		names = append(names, a.Name)
	}
	joined := strings.Join(names, ", ")
	if len(entry.Authors) > 3 {
		joined += fmt.Sprintf(" et al. (%d authors)", len(entry.Authors))
	}
	return joined
}

var _ domain.Fetcher = (*ArxivFetcher)(nil)
