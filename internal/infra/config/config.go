package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL        string
	EmbeddingModel   string
	EmbeddingDim     int
	EmbeddingTimeout int
	EmbedCacheSize   int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAITimeout int

	FetchIntervalMinutes int
	DigestHourUTC        int
	MaxItemsPerSource    int
	ScoringConcurrency   int
	MinStoreScore        float64
	MinDigestScore       float64

	SimilarityThreshold float64
	HardDupThreshold    float64
	DedupWindowHours    int

	RSSFeedURLs      []string
	GitHubRepos      []string
	GitHubToken      string
	RedditSubreddits []string
	HuggingFaceKey   string
}

// Load reads configuration from the environment. A .env file is honored when
// present so local runs match the deployment contract.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "news-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "news_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "news_password"),
		DBName:     getEnv("DB_NAME", "news_db"),

		OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-minilm"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),
		EmbeddingTimeout: getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30),
		EmbedCacheSize:   getEnvInt("EMBED_CACHE_SIZE", 2048),

		OpenAIAPIKey:  getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: getEnvInt("OPENAI_TIMEOUT_SECONDS", 60),

		FetchIntervalMinutes: getEnvInt("FETCH_INTERVAL_MINUTES", 30),
		DigestHourUTC:        getEnvInt("DIGEST_HOUR_UTC", 12),
		MaxItemsPerSource:    getEnvInt("MAX_ITEMS_PER_SOURCE", 50),
		ScoringConcurrency:   getEnvInt("SCORING_CONCURRENCY", 5),
		MinStoreScore:        getEnvFloat("MIN_STORE_SCORE", 30.0),
		MinDigestScore:       getEnvFloat("MIN_DIGEST_SCORE", 50.0),

		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.85),
		HardDupThreshold:    getEnvFloat("HARD_DUP_THRESHOLD", 0.95),
		DedupWindowHours:    getEnvInt("DEDUP_WINDOW_HOURS", 48),

		RSSFeedURLs:      getEnvList("RSS_FEED_URLS"),
		GitHubRepos:      getEnvList("GITHUB_REPOS"),
		GitHubToken:      getSecret("GITHUB_TOKEN", "GITHUB_TOKEN_FILE", ""),
		RedditSubreddits: getEnvList("REDDIT_SUBREDDITS"),
		HuggingFaceKey:   getSecret("HUGGINGFACE_API_KEY", "HUGGINGFACE_API_KEY_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DigestHourUTC < 0 || c.DigestHourUTC > 23 {
		return fmt.Errorf("DIGEST_HOUR_UTC must be between 0 and 23, got %d", c.DigestHourUTC)
	}
	if c.FetchIntervalMinutes <= 0 {
		return fmt.Errorf("FETCH_INTERVAL_MINUTES must be positive, got %d", c.FetchIntervalMinutes)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %g", c.SimilarityThreshold)
	}
	if c.HardDupThreshold < c.SimilarityThreshold || c.HardDupThreshold > 1 {
		return fmt.Errorf("HARD_DUP_THRESHOLD must be in [SIMILARITY_THRESHOLD, 1], got %g", c.HardDupThreshold)
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
