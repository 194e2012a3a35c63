package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
)

func testLimiter(t *testing.T) *ratelimit.Manager {
	t.Helper()
	configs := map[string]ratelimit.ServiceConfig{}
	for _, source := range domain.KnownSources {
		configs[string(source)] = ratelimit.ServiceConfig{
			Limiter: ratelimit.LimiterConfig{RequestsPerSecond: 1000, BurstLimit: 1000},
			Breaker: ratelimit.DefaultBreakerConfig(),
		}
	}
	return ratelimit.NewManager(configs, discardLogger())
}

func TestIsAIRelevant(t *testing.T) {
	tests := []struct {
		name  string
		story hnStory
		want  bool
	}{
		{
			name:  "title keyword",
			story: hnStory{Title: "New LLM beats benchmarks"},
			want:  true,
		},
		{
			name:  "url keyword",
			story: hnStory{Title: "Interesting paper", URL: "https://arxiv.org/abs/2401.00001"},
			want:  true,
		},
		{
			name:  "text keyword case insensitive",
			story: hnStory{Title: "Show HN: my project", Text: "Built with PyTorch"},
			want:  true,
		},
		{
			name:  "no keywords",
			story: hnStory{Title: "Why I switched from vim to emacs"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAIRelevant(tt.story))
		})
	}
}

func TestHackerNewsFetcher_Fetch(t *testing.T) {
	stories := map[string]string{
		"1": `{"id": 1, "type": "story", "title": "GPT-5 released", "by": "pg", "time": 1700000000, "url": "https://example.com/gpt5"}`,
		"2": `{"id": 2, "type": "story", "title": "Sourdough starter tips", "by": "alice", "time": 1700000100, "url": "https://example.com/bread"}`,
		"3": `{"id": 3, "type": "comment", "title": "A machine learning comment", "by": "bob", "time": 1700000200}`,
		"4": `{"id": 4, "type": "story", "title": "Ask HN: best neural network course?", "by": "carol", "time": 1700000300}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/topstories.json" {
			fmt.Fprint(w, `[1, 2, 3, 4]`)
			return
		}
		for id, body := range stories {
			if r.URL.Path == "/item/"+id+".json" {
				fmt.Fprint(w, body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewHackerNewsFetcher(testLimiter(t), discardLogger())
	f.baseURL = server.URL

	articles, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)

	// Story 2 fails the keyword filter, story 3 is not a story.
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.Equal(t, domain.SourceHackerNews, a.Source)
		assert.NoError(t, a.Validate())
	}

	ids := []string{articles[0].SourceID, articles[1].SourceID}
	assert.ElementsMatch(t, []string{"1", "4"}, ids)
}

func TestHackerNewsFetcher_TextOnlyStoryGetsItemURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/topstories.json" {
			fmt.Fprint(w, `[7]`)
			return
		}
		fmt.Fprint(w, `{"id": 7, "type": "story", "title": "Ask HN: fine-tuning tips?", "by": "dan", "time": 1700000000}`)
	}))
	defer server.Close()

	f := NewHackerNewsFetcher(testLimiter(t), discardLogger())
	f.baseURL = server.URL

	articles, err := f.Fetch(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://news.ycombinator.com/item?id=7", articles[0].URL)
}

func TestHackerNewsFetcher_CircuitOpenShortCircuits(t *testing.T) {
	limiter := testLimiter(t)
	breaker := limiter.Breaker(string(domain.SourceHackerNews))
	for i := 0; i < 10; i++ {
		breaker.RecordFailure()
	}

	f := NewHackerNewsFetcher(limiter, discardLogger())

	_, err := f.Fetch(context.Background(), 5)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.SourceHackerNews, fetchErr.Source)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
}
