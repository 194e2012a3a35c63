package domain

// NewsAnalysis is the structured output contract for single-article relevance
// scoring. The LLM must return exactly these fields; bounds are enforced by
// the output validator before the result touches an article.
type NewsAnalysis struct {
	Summary        string   `json:"summary"`
	RelevanceScore float64  `json:"relevance_score"`
	Categories     []string `json:"categories"`
	KeyPoints      []string `json:"key_points"`
}

// DigestSummary is the structured output contract for multi-article digest
// synthesis.
type DigestSummary struct {
	SummaryText         string   `json:"summary_text"`
	KeyThemes           []string `json:"key_themes"`
	NotableDevelopments []string `json:"notable_developments"`
}
