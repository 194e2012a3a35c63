package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		b       string
		min     float64
		max     float64
	}{
		{
			name: "identical titles",
			a:    "OpenAI releases new reasoning model",
			b:    "OpenAI releases new reasoning model",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "stop words ignored",
			a:    "The release of a new model",
			b:    "Release of new model",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "syndicated rewrite keeps high overlap",
			a:    "Google announces Gemini 2 with longer context",
			b:    "Google announces Gemini 2: longer context window",
			min:  0.5,
			max:  0.99,
		},
		{
			name: "unrelated titles",
			a:    "Quantum computing milestone reached",
			b:    "New JavaScript framework released",
			min:  0.0,
			max:  0.0,
		},
		{
			name: "case insensitive",
			a:    "LLAMA WEIGHTS LEAKED",
			b:    "llama weights leaked",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "empty title",
			a:    "",
			b:    "anything",
			min:  0.0,
			max:  0.0,
		},
		{
			name: "only stop words",
			a:    "the of and",
			b:    "something real",
			min:  0.0,
			max:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}
