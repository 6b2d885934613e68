package tts_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/tts"
)

func TestProcessEngine_EmptyText(t *testing.T) {
	t.Parallel()

	engine := tts.NewProcessEngine(
		"/usr/bin/true", "/tmp/model.gguf", 0.7, newTestLogger(t),
	)

	_, err := engine.Synthesize(t.Context(), core.SynthesisRequest{})

	require.ErrorIs(t, err, tts.ErrTextEmpty)
}

func TestProcessEngine_MissingCommand(t *testing.T) {
	t.Parallel()

	engine := tts.NewProcessEngine("", "/tmp/model.gguf", 0.7, newTestLogger(t))

	_, err := engine.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi"})

	require.ErrorIs(t, err, tts.ErrCommandNotConfigured)
}

func TestProcessEngine_CommandFailure(t *testing.T) {
	t.Parallel()

	engine := tts.NewProcessEngine(
		"/bin/false", "/tmp/model.gguf", 0.7, newTestLogger(t),
	)

	_, err := engine.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi"})

	require.Error(t, err)
}

func TestProcessEngine_EmptyOutput(t *testing.T) {
	t.Parallel()

	// /usr/bin/true exits zero without writing the output file.
	engine := tts.NewProcessEngine(
		"/usr/bin/true", "/tmp/model.gguf", 0.7, newTestLogger(t),
	)

	_, err := engine.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi"})

	require.ErrorIs(t, err, tts.ErrProcessEmptyAudio)
}
