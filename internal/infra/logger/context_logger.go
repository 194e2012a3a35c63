package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Business context keys propagated through the ingestion pipeline.
	RunIDKey     ContextKey = "run_id"
	ArticleIDKey ContextKey = "article_id"
	StageKey     ContextKey = "stage"
	SourceKey    ContextKey = "source"
)

// ContextLogger decorates an existing logger with pipeline context values,
// so a run ID attached once at the top of a run appears on every line
// logged beneath it.
type ContextLogger struct {
	logger *slog.Logger
}

// NewContextLogger wraps base. The base logger keeps its handler chain, so
// context fields flow to stdout and OTel alike.
func NewContextLogger(base *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: base}
}

// WithContext returns a logger with context values extracted and added as fields.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger

	var fields []any

	if runID := ctx.Value(RunIDKey); runID != nil {
		fields = append(fields, string(RunIDKey), runID)
	}
	if articleID := ctx.Value(ArticleIDKey); articleID != nil {
		fields = append(fields, string(ArticleIDKey), articleID)
	}
	if stage := ctx.Value(StageKey); stage != nil {
		fields = append(fields, string(StageKey), stage)
	}
	if source := ctx.Value(SourceKey); source != nil {
		fields = append(fields, string(SourceKey), source)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// Context helper functions

// WithRunID adds the pipeline run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithArticleID adds the article ID to the context.
func WithArticleID(ctx context.Context, articleID string) context.Context {
	return context.WithValue(ctx, ArticleIDKey, articleID)
}

// WithStage adds the pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithSource adds the news source name to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
