package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"news-orchestrator/internal/domain"
)

// OutputValidator parses and bounds-checks the structured JSON the LLM emits.
// Out-of-bounds output is rejected, never clamped; a model that cannot follow
// the contract should fail loudly.
type OutputValidator struct{}

func NewOutputValidator() OutputValidator {
	return OutputValidator{}
}

// ValidateAnalysis parses a per-article analysis response.
func (v OutputValidator) ValidateAnalysis(raw string) (*domain.NewsAnalysis, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &domain.ScoringError{Reason: "empty response"}
	}

	var analysis domain.NewsAnalysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return nil, &domain.ScoringError{Reason: "malformed json", Err: err}
	}

	if strings.TrimSpace(analysis.Summary) == "" {
		return nil, &domain.ScoringError{Reason: "missing summary"}
	}
	if len(analysis.Summary) > domain.MaxSummaryLength {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("summary exceeds %d characters", domain.MaxSummaryLength),
		}
	}
	if analysis.RelevanceScore < 0 || analysis.RelevanceScore > 100 {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("relevance_score %g outside 0-100", analysis.RelevanceScore),
		}
	}
	if len(analysis.Categories) > domain.MaxCategories {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("more than %d categories", domain.MaxCategories),
		}
	}
	if len(analysis.KeyPoints) == 0 || len(analysis.KeyPoints) > domain.MaxKeyPoints {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("key_points must contain 1-%d entries", domain.MaxKeyPoints),
		}
	}

	return &analysis, nil
}

// ValidateDigest parses a digest narration response.
func (v OutputValidator) ValidateDigest(raw string) (*domain.DigestSummary, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &domain.ScoringError{Reason: "empty response"}
	}

	var digest domain.DigestSummary
	if err := json.Unmarshal([]byte(trimmed), &digest); err != nil {
		return nil, &domain.ScoringError{Reason: "malformed json", Err: err}
	}

	if strings.TrimSpace(digest.SummaryText) == "" {
		return nil, &domain.ScoringError{Reason: "missing summary_text"}
	}
	if len(digest.SummaryText) > domain.MaxDigestSummaryLength {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("summary_text exceeds %d characters", domain.MaxDigestSummaryLength),
		}
	}
	if len(digest.KeyThemes) > domain.MaxDigestKeyThemes {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("more than %d key_themes", domain.MaxDigestKeyThemes),
		}
	}
	if len(digest.NotableDevelopments) > domain.MaxNotableDevelopments {
		return nil, &domain.ScoringError{
			Reason: fmt.Sprintf("more than %d notable_developments", domain.MaxNotableDevelopments),
		}
	}

	return &digest, nil
}
