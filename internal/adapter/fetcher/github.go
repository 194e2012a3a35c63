package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/infra/httpclient"
	"news-orchestrator/internal/ratelimit"
)

const githubAPIURL = "https://api.github.com"

// githubRepoConcurrency bounds parallel release lookups.
const githubRepoConcurrency = 5

// githubReleaseWindow drops releases older than this; stale releases are not
// news.
const githubReleaseWindow = 30 * 24 * time.Hour

// githubReleaseNotesLimit truncates long release notes before scoring.
const githubReleaseNotesLimit = 800

// defaultGitHubRepos are tracked when no repository list is configured.
var defaultGitHubRepos = []string{
	"anthropics/anthropic-sdk-python",
	"openai/openai-python",
	"langchain-ai/langchain",
	"ollama/ollama",
}

type githubRelease struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`

	repo string
}

// GitHubFetcher tracks new releases of AI tooling repositories via the
// GitHub Releases API. A personal access token raises the rate limit but is
// not required.
type GitHubFetcher struct {
	baseURL string
	token   string
	repos   []string
	client  *http.Client
	limiter *ratelimit.Manager
	logger  *slog.Logger
	health  *healthTracker
}

func NewGitHubFetcher(repos []string, token string, limiter *ratelimit.Manager, logger *slog.Logger) *GitHubFetcher {
	if len(repos) == 0 {
		repos = defaultGitHubRepos
	}
	return &GitHubFetcher{
		baseURL: githubAPIURL,
		token:   token,
		repos:   repos,
		client:  httpclient.NewPooledClient(30 * time.Second),
		limiter: limiter,
		logger:  logger,
		health:  newHealthTracker(domain.SourceGitHub, limiter),
	}
}

func (f *GitHubFetcher) Source() domain.Source {
	return domain.SourceGitHub
}

func (f *GitHubFetcher) Health() domain.FetcherHealth {
	return f.health.snapshot()
}

func (f *GitHubFetcher) Fetch(ctx context.Context, maxItems int) ([]domain.Article, error) {
	breaker := f.limiter.Breaker(string(domain.SourceGitHub))
	if err := breaker.Allow(); err != nil {
		return nil, &domain.FetchError{Source: domain.SourceGitHub, Err: err}
	}

	releases, failedRepos := f.fetchAllReleases(ctx)
	if failedRepos == len(f.repos) {
		breaker.RecordFailure()
		return nil, &domain.FetchError{
			Source: domain.SourceGitHub,
			Err:    fmt.Errorf("all %d repositories failed", len(f.repos)),
		}
	}
	breaker.RecordSuccess()

	cutoff := time.Now().UTC().Add(-githubReleaseWindow)
	now := time.Now().UTC()

	articles := make([]domain.Article, 0, len(releases))
	for _, release := range releases {
		if release.Draft {
			continue
		}
		publishedAt := release.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = release.CreatedAt
		}
		if publishedAt.Before(cutoff) {
			continue
		}

		articles = append(articles, f.releaseToArticle(release, publishedAt, now))
	}

	// Newest releases first.
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > maxItems {
		articles = articles[:maxItems]
	}

	f.logger.Info("github_fetch_completed",
		slog.Int("tracked_repos", len(f.repos)),
		slog.Int("failed_repos", failedRepos),
		slog.Int("articles", len(articles)),
	)
	return articles, nil
}

// fetchAllReleases loads recent releases per repository. Individual repo
// failures are logged and counted so one bad repo never aborts the fetch.
func (f *GitHubFetcher) fetchAllReleases(ctx context.Context) ([]githubRelease, int) {
	var (
		mu       sync.Mutex
		releases []githubRelease
		failed   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(githubRepoConcurrency)

	for _, repo := range f.repos {
		repo := repo
		g.Go(func() error {
			url := fmt.Sprintf("%s/repos/%s/releases?per_page=10", f.baseURL, repo)

			var repoReleases []githubRelease
			if err := f.getJSON(gctx, url, &repoReleases); err != nil {
				f.health.recordError()
				f.logger.Warn("github_repo_fetch_failed",
					slog.String("repo", repo),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			for i := range repoReleases {
				repoReleases[i].repo = repo
			}
			mu.Lock()
			releases = append(releases, repoReleases...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return releases, failed
}

func (f *GitHubFetcher) releaseToArticle(release githubRelease, publishedAt, fetchedAt time.Time) domain.Article {
	repoName := release.repo
	if idx := strings.LastIndex(release.repo, "/"); idx >= 0 {
		repoName = release.repo[idx+1:]
	}

	title := fmt.Sprintf("%s %s", repoName, release.TagName)
	if release.Name != "" && release.Name != release.TagName {
		title += " - " + release.Name
	}

	content := strings.TrimSpace(release.Body)
	if content == "" {
		content = fmt.Sprintf("New release %s of %s.", release.TagName, repoName)
	} else if len(content) > githubReleaseNotesLimit {
		content = truncate(content, githubReleaseNotesLimit) + "..."
	}

	url := release.HTMLURL
	if url == "" {
		url = fmt.Sprintf("https://github.com/%s/releases/tag/%s", release.repo, release.TagName)
	}

	author := release.Author.Login
	if author == "" {
		author = strings.SplitN(release.repo, "/", 2)[0]
	}

	return domain.Article{
		ID:          uuid.New(),
		Source:      domain.SourceGitHub,
		SourceID:    fmt.Sprintf("github_%s_%d", strings.ReplaceAll(release.repo, "/", "_"), release.ID),
		Title:       truncate(title, domain.MaxTitleLength),
		Content:     truncate(content, domain.MaxContentLength),
		URL:         url,
		Author:      author,
		PublishedAt: publishedAt.UTC(),
		FetchedAt:   fetchedAt,
	}
}

func (f *GitHubFetcher) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx, string(domain.SourceGitHub), 1); err != nil {
		return fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	f.health.recordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call github: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ domain.Fetcher = (*GitHubFetcher)(nil)
