// Package worker consumes text-processed events from NATS and produces
// synthesized audio chunks.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/synth"
	"github.com/book-expert/speech-gateway/internal/text"
	"github.com/book-expert/speech-gateway/internal/voices"
)

const handleMessageTimeout = 10 * time.Minute

// Static errors.
var (
	ErrTextKeyEmpty         = errors.New("text key cannot be empty")
	ErrTopPRange            = errors.New("top_p must be between 0.0 and 1.0")
	ErrTemperatureNegative  = errors.New("temperature must be >= 0.0")
	ErrAllChunksFailedAsync = errors.New("no audio produced for job")
)

// NatsWorker listens for text-processed events and synthesizes their text
// chunk by chunk. Every successful chunk is uploaded to the object store
// and announced with its own audio-chunk-created event, in chunk order, so
// consumers can begin playback before the job finishes.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	publishSubject string
	store          core.ObjectStore
	driver         *synth.Driver
	normalizer     *text.Normalizer
	resolver       *voices.Resolver
	targetSize     int
	log            *logger.Logger
}

// NewNatsWorker creates a worker consuming from subject and announcing
// produced chunks on publishSubject.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	publishSubject string,
	store core.ObjectStore,
	driver *synth.Driver,
	resolver *voices.Resolver,
	targetSize int,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		publishSubject: publishSubject,
		store:          store,
		driver:         driver,
		normalizer:     text.NewNormalizer(),
		resolver:       resolver,
		targetSize:     targetSize,
		log:            log,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	lastEvent, err := w.processJob(ctx, event)
	if err != nil {
		w.log.Error(
			"Failed to process synthesis job for workflow %s: %v",
			event.Header.WorkflowID, err,
		)

		return
	}

	if msg.Reply != "" {
		replyErr := w.respond(msg, lastEvent)
		if replyErr != nil {
			w.log.Error(
				"Failed to reply for workflow %s: %v",
				event.Header.WorkflowID, replyErr,
			)
		}
	}
}

// processJob downloads the job's text, synthesizes it chunk by chunk, and
// uploads and announces every successful chunk. It returns the last chunk's
// event for the request/reply path.
func (w *NatsWorker) processJob(
	ctx context.Context,
	event *events.TextProcessedEvent,
) (*events.AudioChunkCreatedEvent, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to download text data for key '%s': %w", event.TextKey, err,
		)
	}

	req := core.SynthesisRequest{
		Text:      w.normalizer.Normalize(string(textData)),
		VoicePath: w.resolveVoice(event.Voice),
		Language:  "",
	}

	jobID := uuid.NewString()

	var (
		lastEvent *events.AudioChunkCreatedEvent
		delivered int
		attempted int
	)

	for result := range w.driver.Stream(ctx, req, w.targetSize) {
		attempted++

		if result.Err != nil {
			continue
		}

		chunkEvent, chunkErr := w.deliverChunk(ctx, event, jobID, result)
		if chunkErr != nil {
			w.log.Error(
				"Failed to deliver chunk %d for workflow %s: %v",
				result.Index, event.Header.WorkflowID, chunkErr,
			)

			continue
		}

		lastEvent = chunkEvent
		delivered++
	}

	if attempted > 0 && delivered == 0 {
		return nil, fmt.Errorf(
			"%w: %d chunks attempted", ErrAllChunksFailedAsync, attempted,
		)
	}

	w.log.Info(
		"Synthesized %d of %d chunks for workflow %s",
		delivered, attempted, event.Header.WorkflowID,
	)

	return lastEvent, nil
}

// deliverChunk uploads one chunk's audio and announces it. Keys are ordered
// by chunk index so consumers can reassemble the utterance.
func (w *NatsWorker) deliverChunk(
	ctx context.Context,
	event *events.TextProcessedEvent,
	jobID string,
	result synth.ChunkResult,
) (*events.AudioChunkCreatedEvent, error) {
	audioKey := fmt.Sprintf("%s/chunk_%04d.wav", jobID, result.Index)

	err := w.store.Upload(ctx, audioKey, result.Audio)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to upload audio data for key '%s': %w", audioKey, err,
		)
	}

	chunkEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	payload, err := json.Marshal(chunkEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk event: %w", err)
	}

	err = w.natsConnection.Publish(w.publishSubject, payload)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to publish chunk event for key '%s': %w", audioKey, err,
		)
	}

	return chunkEvent, nil
}

// respond answers the request message with the final chunk's event.
func (w *NatsWorker) respond(
	msg *nats.Msg,
	lastEvent *events.AudioChunkCreatedEvent,
) error {
	if lastEvent == nil {
		return nil
	}

	replyData, err := json.Marshal(lastEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

// resolveVoice maps the event's voice name to a reference path. Unknown
// voices degrade to the engine default rather than failing the job.
func (w *NatsWorker) resolveVoice(name string) string {
	if w.resolver == nil {
		return ""
	}

	path, err := w.resolver.Resolve(name)
	if err != nil {
		w.log.Warn("Voice %q unavailable, using engine default: %v", name, err)

		return ""
	}

	return path
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	if event.TopP < 0.0 || event.TopP > 1.0 {
		return nil, fmt.Errorf("%w: got %f", ErrTopPRange, event.TopP)
	}

	if event.Temperature < 0.0 {
		return nil, fmt.Errorf("%w: got %f", ErrTemperatureNegative, event.Temperature)
	}

	return &event, nil
}
