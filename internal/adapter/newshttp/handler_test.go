package newshttp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-orchestrator/internal/adapter/fetcher"
	"news-orchestrator/internal/adapter/newshttp"
	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
	"news-orchestrator/internal/scheduler"
)

type stubArticleRepo struct {
	articles   []domain.Article
	byID       map[uuid.UUID]*domain.Article
	stats      domain.DedupStats
	lastFilter domain.ArticleFilter
}

func (s *stubArticleRepo) Upsert(ctx context.Context, article *domain.Article) error { return nil }

func (s *stubArticleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	return s.byID[id], nil
}

func (s *stubArticleRepo) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	s.lastFilter = filter
	return s.articles, nil
}

func (s *stubArticleRepo) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	return nil, nil
}

func (s *stubArticleRepo) SearchSimilar(ctx context.Context, query pgvector.Vector, threshold float64, since time.Time, limit int) ([]domain.SimilarMatch, error) {
	return nil, nil
}

func (s *stubArticleRepo) TopForDigest(ctx context.Context, since time.Time, minScore float64, limit int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubArticleRepo) Stats(ctx context.Context) (*domain.DedupStats, error) {
	return &s.stats, nil
}

type stubDigestRepo struct {
	latest *domain.Digest
	byDate map[string]*domain.Digest
}

func (s *stubDigestRepo) UpsertForDate(ctx context.Context, digest *domain.Digest) error { return nil }

func (s *stubDigestRepo) GetByDate(ctx context.Context, date time.Time) (*domain.Digest, error) {
	return s.byDate[date.Format("2006-01-02")], nil
}

func (s *stubDigestRepo) GetLatest(ctx context.Context) (*domain.Digest, error) {
	return s.latest, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, articles *stubArticleRepo, digests *stubDigestRepo) (*newshttp.Handler, *scheduler.Scheduler) {
	t.Helper()

	sched := scheduler.New(discardLogger())
	require.NoError(t, sched.AddIntervalTask(newshttp.TaskFetch, 30, func(ctx context.Context) error { return nil }))

	registry, err := fetcher.NewRegistry()
	require.NoError(t, err)

	limiter := ratelimit.NewManager(nil, discardLogger())

	return newshttp.NewHandler(articles, digests, sched, registry, limiter), sched
}

func TestHandler_ListArticles_Filters(t *testing.T) {
	score := 72.0
	repo := &stubArticleRepo{articles: []domain.Article{
		{ID: uuid.New(), Source: domain.SourceArxiv, Title: "Paper", URL: "https://arxiv.org/abs/1", RelevanceScore: &score},
	}}
	handler, _ := newTestHandler(t, repo, &stubDigestRepo{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/articles?source=arxiv&min_score=60&since_hours=24&limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.ListArticles(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, repo.lastFilter.Source)
	assert.Equal(t, domain.SourceArxiv, *repo.lastFilter.Source)
	require.NotNil(t, repo.lastFilter.MinRelevanceScore)
	assert.Equal(t, 60.0, *repo.lastFilter.MinRelevanceScore)
	assert.NotNil(t, repo.lastFilter.Since)
	assert.Equal(t, 10, repo.lastFilter.Limit)
	assert.Equal(t, 5, repo.lastFilter.Offset)
	assert.False(t, repo.lastFilter.IncludeDuplicates)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestHandler_ListArticles_RejectsBadParams(t *testing.T) {
	handler, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
	e := echo.New()

	cases := []struct {
		name  string
		query string
	}{
		{"unknown source", "source=twitter"},
		{"bad min_score", "min_score=high"},
		{"negative since_hours", "since_hours=-3"},
		{"limit too large", "limit=5000"},
		{"negative offset", "offset=-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/articles?"+tc.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, handler.ListArticles(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_GetArticle(t *testing.T) {
	id := uuid.New()
	repo := &stubArticleRepo{byID: map[uuid.UUID]*domain.Article{
		id: {ID: id, Source: domain.SourceHackerNews, Title: "Story", URL: "https://example.com"},
	}}
	handler, _ := newTestHandler(t, repo, &stubDigestRepo{})
	e := echo.New()

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id.String())

		require.NoError(t, handler.GetArticle(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Story")
	})

	t.Run("missing returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(uuid.NewString())

		require.NoError(t, handler.GetArticle(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("not-a-uuid")

		require.NoError(t, handler.GetArticle(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ArticleStats(t *testing.T) {
	repo := &stubArticleRepo{stats: domain.DedupStats{TotalArticles: 200, DuplicateArticles: 50}}
	handler, _ := newTestHandler(t, repo, &stubDigestRepo{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/articles/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.ArticleStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int64   `json:"total_articles"`
		Dups  int64   `json:"duplicate_articles"`
		Ratio float64 `json:"duplicate_ratio"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(200), body.Total)
	assert.Equal(t, int64(50), body.Dups)
	assert.InDelta(t, 0.25, body.Ratio, 1e-9)
}

func TestHandler_Digests(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	digest := &domain.Digest{
		ID:          uuid.New(),
		DigestDate:  date,
		SummaryText: "A big day for open models.",
		KeyThemes:   []string{"open weights"},
	}
	digests := &stubDigestRepo{
		latest: digest,
		byDate: map[string]*domain.Digest{"2025-06-10": digest},
	}
	handler, _ := newTestHandler(t, &stubArticleRepo{}, digests)
	e := echo.New()

	t.Run("latest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/digests/latest", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.LatestDigest(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "2025-06-10")
	})

	t.Run("no digest yet returns 404", func(t *testing.T) {
		empty, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
		req := httptest.NewRequest(http.MethodGet, "/v1/digests/latest", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, empty.LatestDigest(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("by date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("date")
		c.SetParamValues("2025-06-10")

		require.NoError(t, handler.DigestByDate(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "open weights")
	})

	t.Run("bad date returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("date")
		c.SetParamValues("June 10")

		require.NoError(t, handler.DigestByDate(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_RunTask(t *testing.T) {
	handler, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
	e := echo.New()

	run := func(name string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("name")
		c.SetParamValues(name)
		require.NoError(t, handler.RunTask(c))
		return rec
	}

	assert.Equal(t, http.StatusAccepted, run(newshttp.TaskFetch).Code)
	assert.Equal(t, http.StatusNotFound, run("no_such_task").Code)
}

func TestHandler_SchedulerStatus(t *testing.T) {
	handler, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/status/scheduler", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.SchedulerStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status scheduler.SchedulerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.TotalTasks)
	assert.False(t, status.IsRunning)
}

func TestHandler_RateLimitStatus(t *testing.T) {
	handler, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/status/ratelimits", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.RateLimitStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openai")
}

func TestHandler_RunFetch(t *testing.T) {
	handler, _ := newTestHandler(t, &stubArticleRepo{}, &stubDigestRepo{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/fetch", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.RunFetch(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The digest task is not registered in this fixture.
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/digest", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	require.NoError(t, handler.RunDigest(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
