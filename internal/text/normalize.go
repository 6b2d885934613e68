// Package text provides text normalization applied before chunked synthesis.
//
// The normalizer removes the input irregularities that degrade synthesis or
// mislead sentence-boundary chunking: abbreviations whose trailing period
// would read as a sentence end, typographic quotes and dashes the model has
// no pronunciation for, and irregular whitespace.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

const whitespaceRegexPattern = `\s+`

// Normalizer provides text normalization for synthesis input.
type Normalizer struct {
	whitespacePattern    *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	typographyReplacer   *strings.Replacer
}

// NewNormalizer creates a normalizer with compiled patterns and replacers.
func NewNormalizer() *Normalizer {
	// Expanding abbreviations before chunking prevents their trailing
	// period from being taken for a sentence boundary.
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
	}

	typography := []string{
		emDash, "-",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	}

	return &Normalizer{
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		typographyReplacer:   strings.NewReplacer(typography...),
	}
}

// Normalize cleans text for synthesis. Cheaper transformations run first.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	normalized := n.abbreviationReplacer.Replace(text)
	normalized = n.typographyReplacer.Replace(normalized)
	normalized = n.normalizeWhitespace(normalized)

	return n.ensureSentenceEnding(normalized)
}

// normalizeWhitespace collapses whitespace runs, including newlines and
// tabs, into single spaces.
func (n *Normalizer) normalizeWhitespace(text string) string {
	return strings.TrimSpace(n.whitespacePattern.ReplaceAllString(text, " "))
}

// ensureSentenceEnding appends a terminal period when the text does not
// already end with punctuation, so the final chunk reads as a complete
// sentence.
func (n *Normalizer) ensureSentenceEnding(text string) string {
	if text == "" {
		return text
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)
	if unicode.IsPunct(lastChar) {
		return text
	}

	return text + "."
}
