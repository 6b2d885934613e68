// Package synth drives chunked, strictly sequential speech synthesis.
//
// The external synthesis engine is a singleton resource that is not safe for
// concurrent invocation, so the driver never overlaps calls: the next chunk
// is only submitted after the previous call returns. Each produced audio
// blob is handed to the consumer as soon as it is ready, which is the whole
// point of chunking: playback can begin before the full text is synthesized.
package synth

import (
	"context"
	"errors"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/chunker"
	"github.com/book-expert/speech-gateway/internal/core"
)

// ErrNoAudioProduced indicates that every chunk of a non-empty utterance
// failed to synthesize. It distinguishes total failure from the legitimate
// empty result of an empty utterance.
var ErrNoAudioProduced = errors.New("no audio produced for any chunk")

// ChunkResult is the outcome of synthesizing one chunk. Either Audio or Err
// is set. Failed chunks are reported, not swallowed: the consumer decides
// whether partial delivery is acceptable.
type ChunkResult struct {
	Index int
	Text  string
	Audio []byte
	Err   error
}

// Driver sequences synthesis calls over the chunks of an utterance.
//
// The engine handle is injected explicitly; the driver holds no global
// model state and no hidden initialization.
type Driver struct {
	engine core.Synthesizer
	log    *logger.Logger
}

// NewDriver creates a driver around the given synthesis engine.
func NewDriver(engine core.Synthesizer, log *logger.Logger) *Driver {
	return &Driver{
		engine: engine,
		log:    log,
	}
}

// Stream splits the request text and synthesizes the chunks one at a time,
// delivering each ChunkResult on the returned channel as soon as it is
// produced. Results arrive in chunk order and the channel is closed after
// the last one.
//
// A chunk failure is logged, delivered as a ChunkResult with Err set, and
// does not stop the remaining chunks: delivery is best-effort and partial.
// There is no retry. Cancelling the context stops the sequence between
// chunks; an in-flight engine call is not interrupted.
func (d *Driver) Stream(
	ctx context.Context,
	req core.SynthesisRequest,
	targetSize int,
) <-chan ChunkResult {
	results := make(chan ChunkResult)

	go func() {
		defer close(results)

		for index, chunkText := range chunker.Split(req.Text, targetSize) {
			if strings.TrimSpace(chunkText) == "" {
				continue
			}

			if ctx.Err() != nil {
				return
			}

			result := d.synthesizeChunk(ctx, req, index, chunkText)

			select {
			case results <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}

// Collect drains a Stream and returns the audio blobs of the successful
// chunks, in chunk order. It returns ErrNoAudioProduced when at least one
// chunk was attempted and none succeeded; an empty utterance yields an
// empty result and no error.
func (d *Driver) Collect(
	ctx context.Context,
	req core.SynthesisRequest,
	targetSize int,
) ([][]byte, error) {
	var (
		blobs     [][]byte
		attempted int
	)

	for result := range d.Stream(ctx, req, targetSize) {
		attempted++

		if result.Err != nil {
			continue
		}

		blobs = append(blobs, result.Audio)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return blobs, ctxErr
	}

	if attempted > 0 && len(blobs) == 0 {
		return nil, ErrNoAudioProduced
	}

	return blobs, nil
}

// synthesizeChunk performs one engine call and wraps its outcome.
func (d *Driver) synthesizeChunk(
	ctx context.Context,
	req core.SynthesisRequest,
	index int,
	chunkText string,
) ChunkResult {
	audio, err := d.engine.Synthesize(ctx, core.SynthesisRequest{
		Text:      chunkText,
		VoicePath: req.VoicePath,
		Language:  req.Language,
	})
	if err != nil {
		d.log.Error("Failed to synthesize chunk %d: %v", index, err)

		return ChunkResult{
			Index: index,
			Text:  chunkText,
			Audio: nil,
			Err:   err,
		}
	}

	return ChunkResult{
		Index: index,
		Text:  chunkText,
		Audio: audio,
		Err:   nil,
	}
}
