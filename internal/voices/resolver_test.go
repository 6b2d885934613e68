// Package voices_test tests voice-name resolution.
package voices_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/voices"
)

func writeVoice(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	return path
}

func TestResolve_FindsWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeVoice(t, dir, "narrator.wav")

	resolver := voices.NewResolver(dir)

	got, err := resolver.Resolve("narrator")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_EmptyNameUsesDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeVoice(t, dir, "default.wav")

	resolver := voices.NewResolver(dir)

	got, err := resolver.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_PrefersWAVOverMP3(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeVoice(t, dir, "narrator.wav")
	writeVoice(t, dir, "narrator.mp3")

	resolver := voices.NewResolver(dir)

	got, err := resolver.Resolve("narrator")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_Missing(t *testing.T) {
	t.Parallel()

	resolver := voices.NewResolver(t.TempDir())

	_, err := resolver.Resolve("ghost")

	require.ErrorIs(t, err, voices.ErrVoiceNotFound)
}

func TestResolve_RejectsTraversal(t *testing.T) {
	t.Parallel()

	resolver := voices.NewResolver(t.TempDir())

	for _, name := range []string{"../etc/passwd", "a/b", `a\b`, ".."} {
		_, err := resolver.Resolve(name)
		require.ErrorIs(t, err, voices.ErrInvalidVoiceName, "name %q", name)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeVoice(t, dir, "default.wav")
	writeVoice(t, dir, "narrator.mp3")
	writeVoice(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o750))

	resolver := voices.NewResolver(dir)

	names, err := resolver.List()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"default", "narrator"}, names)
}
