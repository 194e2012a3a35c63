package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_EmitsPipelineFields(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRunID(context.Background(), "run-123")
	ctx = WithStage(ctx, "fetch")
	ctx = WithSource(ctx, "arxiv")
	ctx = WithArticleID(ctx, "article-9")

	cl.WithContext(ctx).Info("pipeline_event")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run-123", record["run_id"])
	assert.Equal(t, "fetch", record["stage"])
	assert.Equal(t, "arxiv", record["source"])
	assert.Equal(t, "article-9", record["article_id"])
}

func TestWithContext_BareContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	cl.WithContext(context.Background()).Info("pipeline_event")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "run_id")
	assert.NotContains(t, record, "stage")
	assert.NotContains(t, record, "source")
	assert.NotContains(t, record, "article_id")
}
