package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArticle() Article {
	return Article{
		Source:      SourceHackerNews,
		SourceID:    "41234567",
		Title:       "Show HN: a tiny vector database",
		Content:     "body text",
		URL:         "https://example.com/story",
		PublishedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestArticleValidate(t *testing.T) {
	t.Run("valid article passes", func(t *testing.T) {
		a := validArticle()
		require.NoError(t, a.Validate())
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		a := validArticle()
		a.Source = Source("usenet")
		assert.Error(t, a.Validate())
	})

	t.Run("missing source id rejected", func(t *testing.T) {
		a := validArticle()
		a.SourceID = "  "
		assert.Error(t, a.Validate())
	})

	t.Run("relative url rejected", func(t *testing.T) {
		a := validArticle()
		a.URL = "/story/41234567"
		assert.Error(t, a.Validate())
	})

	t.Run("ftp url rejected", func(t *testing.T) {
		a := validArticle()
		a.URL = "ftp://example.com/story"
		assert.Error(t, a.Validate())
	})

	t.Run("duplicate without canonical reference rejected", func(t *testing.T) {
		a := validArticle()
		a.IsDuplicate = true
		a.DuplicateOf = nil
		assert.Error(t, a.Validate())
	})

	t.Run("duplicate with canonical reference passes", func(t *testing.T) {
		a := validArticle()
		canonical := uuid.New()
		a.IsDuplicate = true
		a.DuplicateOf = &canonical
		assert.NoError(t, a.Validate())
	})
}

func TestArticleApplyAnalysis(t *testing.T) {
	a := validArticle()
	a.ApplyAnalysis(&NewsAnalysis{
		Summary:        "short summary",
		RelevanceScore: 87.5,
		Categories:     []string{"Research"},
		KeyPoints:      []string{"one", "two"},
	})

	require.NotNil(t, a.RelevanceScore)
	assert.Equal(t, 87.5, *a.RelevanceScore)
	assert.Equal(t, "short summary", a.Summary)
	assert.Equal(t, 87.5, a.Score())
}

func TestArticleScoreUnscored(t *testing.T) {
	a := validArticle()
	assert.Equal(t, 0.0, a.Score())
}
