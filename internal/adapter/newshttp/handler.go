package newshttp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"news-orchestrator/internal/adapter/fetcher"
	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
	"news-orchestrator/internal/scheduler"
)

// Task names registered with the scheduler; the admin endpoints trigger
// these by name.
const (
	TaskFetch  = "fetch_articles"
	TaskDigest = "generate_digest"
)

type Handler struct {
	articleRepo domain.ArticleRepository
	digestRepo  domain.DigestRepository
	scheduler   *scheduler.Scheduler
	registry    *fetcher.Registry
	limiter     *ratelimit.Manager
}

func NewHandler(
	articleRepo domain.ArticleRepository,
	digestRepo domain.DigestRepository,
	sched *scheduler.Scheduler,
	registry *fetcher.Registry,
	limiter *ratelimit.Manager,
) *Handler {
	return &Handler{
		articleRepo: articleRepo,
		digestRepo:  digestRepo,
		scheduler:   sched,
		registry:    registry,
		limiter:     limiter,
	}
}

// Register wires every route onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.GET("/articles", h.ListArticles)
	v1.GET("/articles/stats", h.ArticleStats)
	v1.GET("/articles/:id", h.GetArticle)

	v1.GET("/digests/latest", h.LatestDigest)
	v1.GET("/digests/:date", h.DigestByDate)

	v1.POST("/admin/fetch", h.RunFetch)
	v1.POST("/admin/digest", h.RunDigest)
	v1.POST("/admin/tasks/:name/run", h.RunTask)

	v1.GET("/status/scheduler", h.SchedulerStatus)
	v1.GET("/status/sources", h.SourceStatus)
	v1.GET("/status/ratelimits", h.RateLimitStatus)
}

func (h *Handler) ListArticles(c echo.Context) error {
	filter := domain.ArticleFilter{Limit: 50}

	if raw := c.QueryParam("source"); raw != "" {
		source := domain.Source(raw)
		if !source.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown source: " + raw})
		}
		filter.Source = &source
	}
	if raw := c.QueryParam("min_score"); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid min_score"})
		}
		filter.MinRelevanceScore = &score
	}
	if raw := c.QueryParam("since_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid since_hours"})
		}
		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		filter.Since = &since
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 200 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be 1-200"})
		}
		filter.Limit = limit
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid offset"})
		}
		filter.Offset = offset
	}
	filter.IncludeDuplicates = c.QueryParam("include_duplicates") == "true"

	articles, err := h.articleRepo.List(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list articles"})
	}

	out := make([]articleResponse, 0, len(articles))
	for i := range articles {
		out = append(out, toArticleResponse(&articles[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": out, "count": len(out)})
}

func (h *Handler) GetArticle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid article id"})
	}

	article, err := h.articleRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load article"})
	}
	if article == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "article not found"})
	}
	return c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h *Handler) ArticleStats(c echo.Context) error {
	stats, err := h.articleRepo.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
	}

	var ratio float64
	if stats.TotalArticles > 0 {
		ratio = float64(stats.DuplicateArticles) / float64(stats.TotalArticles)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_articles":     stats.TotalArticles,
		"duplicate_articles": stats.DuplicateArticles,
		"duplicate_ratio":    ratio,
	})
}

func (h *Handler) LatestDigest(c echo.Context) error {
	digest, err := h.digestRepo.GetLatest(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load digest"})
	}
	if digest == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no digest available"})
	}
	return c.JSON(http.StatusOK, toDigestResponse(digest))
}

func (h *Handler) DigestByDate(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
	}

	digest, err := h.digestRepo.GetByDate(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load digest"})
	}
	if digest == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no digest for date"})
	}
	return c.JSON(http.StatusOK, toDigestResponse(digest))
}

func (h *Handler) RunFetch(c echo.Context) error {
	return h.triggerTask(c, TaskFetch)
}

func (h *Handler) RunDigest(c echo.Context) error {
	return h.triggerTask(c, TaskDigest)
}

func (h *Handler) RunTask(c echo.Context) error {
	return h.triggerTask(c, c.Param("name"))
}

func (h *Handler) triggerTask(c echo.Context, name string) error {
	err := h.scheduler.RunNow(name)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, map[string]string{"status": "triggered", "task": name})
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown task: " + name})
	case errors.Is(err, domain.ErrTaskRunning):
		return c.JSON(http.StatusConflict, map[string]string{"error": "task already running: " + name})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to trigger task"})
	}
}

func (h *Handler) SchedulerStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *Handler) SourceStatus(c echo.Context) error {
	fetchers := h.registry.All()
	out := make([]domain.FetcherHealth, 0, len(fetchers))
	for _, f := range fetchers {
		out = append(out, f.Health())
	}
	return c.JSON(http.StatusOK, map[string]any{"sources": out})
}

func (h *Handler) RateLimitStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"services": h.limiter.Status()})
}
