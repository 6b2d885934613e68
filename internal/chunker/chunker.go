// Package chunker splits utterance text into independently synthesizable chunks.
//
// Streaming synthesis is approximated by splitting the input at sentence
// boundaries, synthesizing each chunk separately, and playing the resulting
// audio blobs back-to-back. Splitting at sentence-terminal punctuation keeps
// the resynthesis artifacts at the chunk seams below the perceptible level.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultTargetSize is the chunk size hint, in characters, used when the
// caller does not provide a positive target.
const DefaultTargetSize = 150

// boundaryPattern matches a run of sentence-terminal punctuation together
// with any trailing whitespace, so a boundary match always completes a
// sentence including its separator.
var boundaryPattern = regexp.MustCompile(`[.!?]+\s*`)

// Split divides text into an ordered sequence of chunks sized for
// independent synthesis.
//
// Every run of sentence-terminal punctuation completes a chunk, so a
// sentence is never cut before its boundary: a chunk may exceed targetSize
// rather than split mid-sentence. Only boundary-free text is force-split,
// at word granularity, once the accumulated length reaches targetSize.
// Whitespace-only fragments are suppressed, and a trailing fragment after
// the last boundary becomes the final chunk.
//
// Split is a pure function: identical inputs produce identical outputs. For
// non-empty input the result has at least one element. Empty input yields a
// single empty chunk, which callers must treat as the "nothing to
// synthesize" marker. A non-positive targetSize falls back to
// DefaultTargetSize.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	var chunks []string

	previousEnd := 0

	for _, match := range boundaryPattern.FindAllStringIndex(text, -1) {
		// The sentence runs from the end of the previous boundary through
		// the end of this one, punctuation included.
		sentence := strings.TrimSpace(text[previousEnd:match[1]])
		if sentence != "" {
			chunks = append(chunks, sentence)
		}

		previousEnd = match[1]
	}

	chunks = appendBoundaryFree(chunks, text[previousEnd:], targetSize)

	// Whole text as a single chunk when no usable fragment was found. This
	// also yields the single-empty-chunk marker for empty input.
	if len(chunks) == 0 {
		chunks = []string{text}
	}

	return chunks
}

// appendBoundaryFree appends the chunks for a stretch of text that contains
// no sentence boundary. Words accumulate until the buffer reaches
// targetSize; the split is forced between words, never inside one.
func appendBoundaryFree(chunks []string, text string, targetSize int) []string {
	if strings.TrimSpace(text) == "" {
		return chunks
	}

	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if current.Len() > 0 {
			current.WriteString(" ")
		}

		current.WriteString(word)

		if current.Len() >= targetSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
