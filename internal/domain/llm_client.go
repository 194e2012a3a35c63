package domain

import (
	"context"
)

// LLMClient sends a prompt pair to the model and returns the raw structured
// text. Parsing and bounds validation happen in the usecase layer so malformed
// output surfaces as a typed error there, not as a silent coercion here.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}
