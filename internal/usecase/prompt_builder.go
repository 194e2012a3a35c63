package usecase

import (
	"fmt"
	"strings"
	"time"

	"news-orchestrator/internal/domain"
)

// PromptBuilder renders the system and user prompts for the two LLM tasks:
// per-article analysis and daily digest narration. Both prompts demand JSON
// output because the client runs in JSON mode.
type PromptBuilder interface {
	BuildAnalysis(article *domain.Article) (system, user string)
	BuildDigest(articles []domain.Article, date time.Time) (system, user string)
}

type promptBuilder struct{}

func NewPromptBuilder() PromptBuilder {
	return &promptBuilder{}
}

func (b *promptBuilder) BuildAnalysis(article *domain.Article) (string, string) {
	var sys strings.Builder
	sys.WriteString("You are an expert AI news analyst with deep expertise in artificial intelligence and machine learning.\n\n")

	sys.WriteString("### Relevance Scoring (0-100)\n")
	sys.WriteString("- 90-100: Breakthrough research, major product launches, significant industry developments\n")
	sys.WriteString("- 80-89: Important technical advances, notable company announcements, policy changes\n")
	sys.WriteString("- 70-79: Interesting research findings, minor product updates, industry trends\n")
	sys.WriteString("- 60-69: Educational content, tool releases, conference announcements\n")
	sys.WriteString("- 50-59: Tangentially related content, general tech news with AI implications\n")
	sys.WriteString("- 40-49: Loosely related content, background information\n")
	sys.WriteString("- 0-39: Not relevant to AI/ML\n\n")

	sys.WriteString("### Categories to Use\n")
	sys.WriteString("Research, Product Launch, Company News, Technical Tutorial, Industry Analysis, ")
	sys.WriteString("Policy/Regulation, Open Source, Hardware/Infrastructure, Ethics/Safety, Investment/Funding\n\n")

	sys.WriteString("### Instructions\n")
	sys.WriteString("1. Read the article title and content carefully.\n")
	sys.WriteString("2. Assess relevance to AI/ML practitioners, researchers, and professionals.\n")
	sys.WriteString(fmt.Sprintf("3. Extract 1-%d key technical or business points.\n", domain.MaxKeyPoints))
	sys.WriteString(fmt.Sprintf("4. Assign at most %d categories from the list above.\n", domain.MaxCategories))
	sys.WriteString(fmt.Sprintf("5. Write a concise summary of at most %d characters.\n", domain.MaxSummaryLength))
	sys.WriteString("6. Be precise and factual; focus on what is new or significant.\n\n")

	sys.WriteString("### Response Format\n")
	sys.WriteString("Respond with a single JSON object:\n")
	sys.WriteString("{\n")
	sys.WriteString("  \"summary\": \"...\",\n")
	sys.WriteString("  \"relevance_score\": 85,\n")
	sys.WriteString("  \"categories\": [\"Research\"],\n")
	sys.WriteString("  \"key_points\": [\"...\"]\n")
	sys.WriteString("}\n")

	var user strings.Builder
	user.WriteString("Analyze this article.\n\n")
	user.WriteString("Title: ")
	user.WriteString(article.Title)
	user.WriteString("\nSource: ")
	user.WriteString(string(article.Source))
	user.WriteString("\nURL: ")
	user.WriteString(article.URL)
	user.WriteString("\nPublished: ")
	user.WriteString(article.PublishedAt.UTC().Format(time.RFC3339))
	user.WriteString("\n\nContent:\n")
	user.WriteString(article.Content)

	return sys.String(), user.String()
}

func (b *promptBuilder) BuildDigest(articles []domain.Article, date time.Time) (string, string) {
	var sys strings.Builder
	sys.WriteString("You are an expert AI newsletter editor creating a daily digest for AI/ML professionals.\n\n")

	sys.WriteString("### Task\n")
	sys.WriteString("Synthesize the day's most important AI news into a coherent summary a busy professional can read in 2-3 minutes.\n\n")

	sys.WriteString("### Writing Style\n")
	sys.WriteString("- Professional but engaging tone, clear and concise.\n")
	sys.WriteString("- Flowing prose that connects related stories; no bullet lists in the narrative.\n")
	sys.WriteString("- Provide context for why each development matters.\n\n")

	sys.WriteString("### Constraints\n")
	sys.WriteString(fmt.Sprintf("- summary_text: at most %d characters, suitable for text-to-speech.\n", domain.MaxDigestSummaryLength))
	sys.WriteString(fmt.Sprintf("- key_themes: at most %d short theme names.\n", domain.MaxDigestKeyThemes))
	sys.WriteString(fmt.Sprintf("- notable_developments: at most %d one-line highlights.\n", domain.MaxNotableDevelopments))
	sys.WriteString("- Maintain factual accuracy; only reference the provided articles.\n\n")

	sys.WriteString("### Response Format\n")
	sys.WriteString("Respond with a single JSON object:\n")
	sys.WriteString("{\n")
	sys.WriteString("  \"summary_text\": \"...\",\n")
	sys.WriteString("  \"key_themes\": [\"...\"],\n")
	sys.WriteString("  \"notable_developments\": [\"...\"]\n")
	sys.WriteString("}\n")

	var user strings.Builder
	user.WriteString(fmt.Sprintf("Create the digest for %s from these %d articles.\n\n",
		date.UTC().Format("2006-01-02"), len(articles)))

	for i, article := range articles {
		user.WriteString(fmt.Sprintf("[%d] %s\n", i+1, article.Title))
		user.WriteString(fmt.Sprintf("    Source: %s | Score: %.0f\n", article.Source, article.Score()))
		if article.Summary != "" {
			user.WriteString("    ")
			user.WriteString(article.Summary)
			user.WriteString("\n")
		}
		user.WriteString("\n")
	}

	return sys.String(), user.String()
}
