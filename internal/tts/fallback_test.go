package tts_test

import (
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/tts"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "tts-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestFallbackSynthesizer_ProducesPlayableWAV(t *testing.T) {
	t.Parallel()

	fallback := tts.NewFallbackSynthesizer(newTestLogger(t))

	wavData, err := fallback.Synthesize(t.Context(), core.SynthesisRequest{
		Text: "This text could not be synthesized by the model.",
	})
	require.NoError(t, err)

	require.NoError(t, audio.ValidateWAV(wavData))

	duration, err := audio.Duration(wavData)
	require.NoError(t, err)
	assert.Greater(t, duration, 0.4)
}

func TestFallbackSynthesizer_DurationScalesWithText(t *testing.T) {
	t.Parallel()

	fallback := tts.NewFallbackSynthesizer(newTestLogger(t))

	short, err := fallback.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi."})
	require.NoError(t, err)

	long, err := fallback.Synthesize(t.Context(), core.SynthesisRequest{
		Text: "A considerably longer sentence that should map to a longer tone.",
	})
	require.NoError(t, err)

	shortDuration, err := audio.Duration(short)
	require.NoError(t, err)

	longDuration, err := audio.Duration(long)
	require.NoError(t, err)

	assert.Greater(t, longDuration, shortDuration)
}

func TestFallbackSynthesizer_EmptyText(t *testing.T) {
	t.Parallel()

	fallback := tts.NewFallbackSynthesizer(newTestLogger(t))

	_, err := fallback.Synthesize(t.Context(), core.SynthesisRequest{})

	require.ErrorIs(t, err, tts.ErrTextEmpty)
}
