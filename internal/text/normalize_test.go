// Package text_test tests synthesis input normalization.
package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/speech-gateway/internal/text"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "abbreviations expanded",
			input:    "Mr. Smith met Dr. Jones.",
			expected: "Mister Smith met Doctor Jones.",
		},
		{
			name:     "whitespace collapsed",
			input:    "first\tline\n\nsecond   line.",
			expected: "first line second line.",
		},
		{
			name:     "smart quotes and dashes normalized",
			input:    "“quoted” — and ‘single’…",
			expected: `"quoted" - and 'single'...`,
		},
		{
			name:     "terminal period added",
			input:    "no ending here",
			expected: "no ending here.",
		},
		{
			name:     "existing punctuation kept",
			input:    "already done!",
			expected: "already done!",
		},
	}

	normalizer := text.NewNormalizer()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, normalizer.Normalize(testCase.input))
		})
	}
}

func TestNormalize_AbbreviationDoesNotEndSentence(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	normalized := normalizer.Normalize("Ask Mr. Smith about it")

	// The abbreviation period is gone, so downstream chunking will not
	// split after "Mr.".
	assert.Equal(t, "Ask Mister Smith about it.", normalized)
}
