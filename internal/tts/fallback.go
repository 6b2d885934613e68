package tts

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

// Fallback tone parameters. The tone length is scaled from the text length
// so the placeholder roughly matches the spoken duration it stands in for.
const (
	fallbackToneHz         = 440.0
	fallbackSecondsPerChar = 0.06
	fallbackMinimumSeconds = 0.5
	fallbackMaximumSeconds = 10.0
)

// FallbackSynthesizer produces a placeholder tone instead of speech. It is
// substituted for the real engine when synthesis fails completely, so the
// caller still receives playable audio instead of an empty response.
type FallbackSynthesizer struct {
	log *logger.Logger
}

// NewFallbackSynthesizer creates the placeholder-tone engine.
func NewFallbackSynthesizer(log *logger.Logger) *FallbackSynthesizer {
	return &FallbackSynthesizer{log: log}
}

// Synthesize generates a sine tone whose duration is estimated from the
// text length. It never contacts a model and cannot fail for valid input.
func (f *FallbackSynthesizer) Synthesize(
	_ context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	duration := float64(len(req.Text)) * fallbackSecondsPerChar
	if duration < fallbackMinimumSeconds {
		duration = fallbackMinimumSeconds
	}

	if duration > fallbackMaximumSeconds {
		duration = fallbackMaximumSeconds
	}

	f.log.Warn(
		"Using fallback tone for %d characters of text (%.1fs)",
		len(req.Text),
		duration,
	)

	samples := audio.Tone(fallbackToneHz, duration, audio.DefaultSampleRate)

	wavData, err := audio.EncodeWAV(samples, audio.DefaultSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fallback tone: %w", err)
	}

	return wavData, nil
}
