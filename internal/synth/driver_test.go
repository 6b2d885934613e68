// Package synth_test tests the sequential synthesis driver.
package synth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/synth"
)

var errMockSynthesis = errors.New("mock synthesis error")

// mockEngine is a scripted core.Synthesizer that can fail on selected calls
// and tracks that calls never overlap. The call log is mutex-guarded so
// tests may inspect it while the driver goroutine is still synthesizing.
type mockEngine struct {
	mu         sync.Mutex
	failOnCall map[int]bool
	calls      []string
	inFlight   atomic.Int32
	overlapped atomic.Bool
	delay      time.Duration
}

func (m *mockEngine) Synthesize(
	_ context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if m.inFlight.Add(1) > 1 {
		m.overlapped.Store(true)
	}

	defer m.inFlight.Add(-1)

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, req.Text)
	m.mu.Unlock()

	if m.failOnCall[call] {
		return nil, errMockSynthesis
	}

	return []byte(fmt.Sprintf("audio-%d", call)), nil
}

func (m *mockEngine) callTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}

func (m *mockEngine) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "driver-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestStream_DeliversChunksInOrder(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{failOnCall: map[int]bool{}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "Hello. How are you? I am fine.",
		VoicePath: "",
		Language:  "en",
	}

	var results []synth.ChunkResult

	for result := range driver.Stream(t.Context(), req, 10) {
		results = append(results, result)
	}

	require.Len(t, results, 3)
	assert.Equal(t, []string{"Hello.", "How are you?", "I am fine."}, engine.callTexts())

	for position, result := range results {
		assert.Equal(t, position, result.Index)
		require.NoError(t, result.Err)
		assert.NotEmpty(t, result.Audio)
	}

	assert.False(t, engine.overlapped.Load(), "synthesis calls must not overlap")
}

func TestStream_FailedChunkIsSkippedNotFatal(t *testing.T) {
	t.Parallel()

	// Chunk 2 of 3 fails: the driver still yields audio for chunks 1 and 3,
	// in that order, and reports the failure as a result value.
	engine := &mockEngine{failOnCall: map[int]bool{1: true}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "First one. Second one. Third one.",
		VoicePath: "",
		Language:  "en",
	}

	var results []synth.ChunkResult

	for result := range driver.Stream(t.Context(), req, 10) {
		results = append(results, result)
	}

	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, []byte("audio-0"), results[0].Audio)

	require.Error(t, results[1].Err)
	assert.Nil(t, results[1].Audio)

	require.NoError(t, results[2].Err)
	assert.Equal(t, []byte("audio-2"), results[2].Audio)
}

func TestStream_FirstChunkAvailableBeforeSequenceCompletes(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		failOnCall: map[int]bool{},
		delay:      50 * time.Millisecond,
	}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "One. Two. Three.",
		VoicePath: "",
		Language:  "en",
	}

	results := driver.Stream(t.Context(), req, 10)

	first, ok := <-results
	require.True(t, ok)
	require.NoError(t, first.Err)

	// Only the first chunk has been synthesized by the time it arrives.
	assert.Equal(t, 1, engine.callCount())

	for range results {
	}
}

func TestCollect_AllChunksFailed(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{failOnCall: map[int]bool{0: true, 1: true}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "First one. Second one.",
		VoicePath: "",
		Language:  "en",
	}

	blobs, err := driver.Collect(t.Context(), req, 10)

	require.ErrorIs(t, err, synth.ErrNoAudioProduced)
	assert.Empty(t, blobs)
}

func TestCollect_EmptyUtteranceIsNotAFailure(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{failOnCall: map[int]bool{}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "",
		VoicePath: "",
		Language:  "en",
	}

	blobs, err := driver.Collect(t.Context(), req, 10)

	require.NoError(t, err)
	assert.Empty(t, blobs)
	assert.Zero(t, engine.callCount(), "empty utterance must not reach the engine")
}

func TestCollect_PartialDelivery(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{failOnCall: map[int]bool{1: true}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	req := core.SynthesisRequest{
		Text:      "Alpha. Beta. Gamma.",
		VoicePath: "",
		Language:  "en",
	}

	blobs, err := driver.Collect(t.Context(), req, 10)

	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, []byte("audio-0"), blobs[0])
	assert.Equal(t, []byte("audio-2"), blobs[1])
}

func TestStream_CancelledContextStopsSequence(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{failOnCall: map[int]bool{}}
	driver := synth.NewDriver(engine, newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := core.SynthesisRequest{
		Text:      "One. Two. Three.",
		VoicePath: "",
		Language:  "en",
	}

	var results []synth.ChunkResult

	for result := range driver.Stream(ctx, req, 10) {
		results = append(results, result)
	}

	assert.Empty(t, results)
}
