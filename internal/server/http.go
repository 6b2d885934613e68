// Package server exposes the gateway's HTTP API.
//
// Two model operations are served: audio transcription and chunked speech
// synthesis. Synthesis can stream: each chunk's WAV blob is written and
// flushed as soon as the engine produces it, so playback starts before the
// full utterance is synthesized.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/book-expert/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/metrics"
	"github.com/book-expert/speech-gateway/internal/synth"
	"github.com/book-expert/speech-gateway/internal/text"
	"github.com/book-expert/speech-gateway/internal/voices"
)

// API routes.
const (
	routeTranscribe = "/v1/transcribe"
	routeSynthesize = "/v1/synthesize"
	routeVoices     = "/v1/voices"
	routeHealth     = "/health"
	routeWarmup     = "/warmup"
	routeMetrics    = "/metrics"
)

// Request limits and warmup inputs.
const (
	maxUploadBytes       = 64 << 20
	warmupText           = "Hi."
	warmupSilenceSeconds = 0.5
)

// Static errors.
var (
	ErrTextRequired = errors.New("text is required")
	ErrFileRequired = errors.New("audio file is required")
)

// HealthChecker reports whether a downstream model service is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures a Server. Driver, Transcriber, Metrics and Log are
// required; the rest have working zero values.
type Options struct {
	Log             *logger.Logger
	Driver          *synth.Driver
	Transcriber     core.Transcriber
	Fallback        core.Synthesizer
	Voices          *voices.Resolver
	Metrics         *metrics.Metrics
	HealthCheckers  map[string]HealthChecker
	Addr            string
	ChunkTargetSize int
	FallbackEnabled bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Server is the gateway's HTTP front end.
type Server struct {
	log        *logger.Logger
	driver     *synth.Driver
	transcribe core.Transcriber
	fallback   core.Synthesizer
	voices     *voices.Resolver
	metrics    *metrics.Metrics
	normalizer *text.Normalizer
	checkers   map[string]HealthChecker

	httpServer      *http.Server
	chunkTargetSize int
	fallbackEnabled bool
}

// New creates the HTTP server and registers all routes.
func New(opts Options) *Server {
	srv := &Server{
		log:             opts.Log,
		driver:          opts.Driver,
		transcribe:      opts.Transcriber,
		fallback:        opts.Fallback,
		voices:          opts.Voices,
		metrics:         opts.Metrics,
		normalizer:      text.NewNormalizer(),
		checkers:        opts.HealthCheckers,
		chunkTargetSize: opts.ChunkTargetSize,
		fallbackEnabled: opts.FallbackEnabled,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+routeTranscribe, srv.instrument(routeTranscribe, srv.handleTranscribe))
	mux.HandleFunc("POST "+routeSynthesize, srv.instrument(routeSynthesize, srv.handleSynthesize))
	mux.HandleFunc("GET "+routeVoices, srv.instrument(routeVoices, srv.handleVoices))
	mux.HandleFunc("GET "+routeHealth, srv.handleHealth)
	mux.HandleFunc("POST "+routeWarmup, srv.handleWarmup)
	mux.Handle("GET "+routeMetrics, promhttp.Handler())

	srv.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      mux,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return srv
}

// Handler returns the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening on %s", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// synthesizeRequest is the JSON body of the synthesis endpoint.
type synthesizeRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
	Stream   bool   `json:"stream,omitempty"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))

		return
	}

	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, ErrTextRequired)

		return
	}

	voicePath, status, err := s.resolveVoice(req.Voice)
	if err != nil {
		s.writeError(w, status, err)

		return
	}

	synthReq := core.SynthesisRequest{
		Text:      s.normalizer.Normalize(req.Text),
		VoicePath: voicePath,
		Language:  req.Language,
	}

	if req.Stream {
		s.streamSynthesis(w, r, synthReq)

		return
	}

	s.completeSynthesis(w, r, synthReq)
}

// streamSynthesis writes each chunk's WAV blob as soon as it is produced.
// The response is committed after the first successful chunk; failures past
// that point can only be reflected in the stream ending early.
func (s *Server) streamSynthesis(
	w http.ResponseWriter,
	r *http.Request,
	req core.SynthesisRequest,
) {
	var delivered, failed int

	for result := range s.driver.Stream(r.Context(), req, s.chunkTargetSize) {
		if result.Err != nil {
			failed++

			s.metrics.SynthesisChunkErrors.Inc()

			continue
		}

		s.metrics.SynthesisChunksTotal.Inc()

		if delivered == 0 {
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
		}

		_, err := w.Write(result.Audio)
		if err != nil {
			s.log.Warn("Client disconnected during streamed synthesis: %v", err)

			return
		}

		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		delivered++
	}

	if delivered == 0 && failed > 0 {
		s.writeError(w, http.StatusBadGateway, synth.ErrNoAudioProduced)

		return
	}

	if delivered == 0 {
		s.writeError(w, http.StatusBadRequest, ErrTextRequired)
	}
}

// completeSynthesis collects all chunks and responds with one merged WAV.
func (s *Server) completeSynthesis(
	w http.ResponseWriter,
	r *http.Request,
	req core.SynthesisRequest,
) {
	blobs, err := s.driver.Collect(r.Context(), req, s.chunkTargetSize)
	if err != nil {
		if errors.Is(err, synth.ErrNoAudioProduced) {
			s.serveFallback(w, r, req)

			return
		}

		s.writeError(w, http.StatusBadGateway, err)

		return
	}

	if len(blobs) == 0 {
		s.writeError(w, http.StatusBadRequest, ErrTextRequired)

		return
	}

	s.metrics.SynthesisChunksTotal.Add(float64(len(blobs)))

	merged, err := audio.Merge(blobs)
	if err != nil {
		// Non-canonical containers from the model cannot be re-framed;
		// deliver them back to back rather than fail the request.
		s.log.Warn("Failed to merge chunk audio, concatenating: %v", err)

		merged = nil
		for _, blob := range blobs {
			merged = append(merged, blob...)
		}
	}

	s.writeAudio(w, merged)
}

// serveFallback answers a totally failed synthesis with a placeholder tone
// when that is enabled, so callers still get playable audio.
func (s *Server) serveFallback(
	w http.ResponseWriter,
	r *http.Request,
	req core.SynthesisRequest,
) {
	if !s.fallbackEnabled || s.fallback == nil {
		s.writeError(w, http.StatusBadGateway, synth.ErrNoAudioProduced)

		return
	}

	toneData, err := s.fallback.Synthesize(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, synth.ErrNoAudioProduced)

		return
	}

	s.metrics.FallbackTonesTotal.Inc()

	s.writeAudio(w, toneData)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrFileRequired)

		return
	}

	defer func() { _ = file.Close() }()

	audioData, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))

		return
	}

	result, err := s.transcribe.Transcribe(r.Context(), audioData)
	if err != nil {
		s.metrics.TranscriptionErrors.Inc()
		s.log.Error("Transcription failed: %v", err)
		s.writeError(w, http.StatusBadGateway, err)

		return
	}

	s.metrics.TranscriptionsTotal.Inc()

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	names, err := s.voices.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	if names == nil {
		names = []string{}
	}

	s.writeJSON(w, http.StatusOK, map[string][]string{"voices": names})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.checkers))

	for name, checker := range s.checkers {
		err := checker.HealthCheck(r.Context())
		if err != nil {
			status = "degraded"
			components[name] = err.Error()

			continue
		}

		components[name] = "ok"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
	})
}

// handleWarmup exercises both model services with tiny inputs so their lazy
// initialization happens before real traffic. It reports failures in the
// body but never with a 5xx status, since a cold model is not an outage.
func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, 2)

	_, err := s.driver.Collect(r.Context(), core.SynthesisRequest{
		Text: warmupText,
	}, s.chunkTargetSize)
	if err != nil {
		s.log.Warn("Synthesis warmup failed: %v", err)

		results["synthesis"] = err.Error()
	} else {
		results["synthesis"] = "ok"
	}

	silence, err := audio.EncodeWAV(
		audio.Silence(warmupSilenceSeconds, audio.DefaultSampleRate),
		audio.DefaultSampleRate,
	)
	if err == nil {
		_, err = s.transcribe.Transcribe(r.Context(), silence)
	}

	if err != nil {
		s.log.Warn("Transcription warmup failed: %v", err)

		results["transcription"] = err.Error()
	} else {
		results["transcription"] = "ok"
	}

	s.writeJSON(w, http.StatusOK, results)
}

// resolveVoice maps the request's voice name to a reference path. A missing
// default voice is not an error: the engine then uses its built-in voice.
func (s *Server) resolveVoice(name string) (string, int, error) {
	path, err := s.voices.Resolve(name)
	if err == nil {
		return path, http.StatusOK, nil
	}

	if errors.Is(err, voices.ErrInvalidVoiceName) {
		return "", http.StatusBadRequest, err
	}

	if name == "" {
		return "", http.StatusOK, nil
	}

	return "", http.StatusNotFound, err
}

// instrument wraps a handler with request counting and latency observation.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		s.metrics.HTTPRequestsTotal.
			WithLabelValues(route, strconv.Itoa(recorder.status)).
			Inc()
		s.metrics.HTTPRequestDuration.
			WithLabelValues(route).
			Observe(time.Since(started).Seconds())
	}
}

// statusRecorder captures the response status for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards streaming flushes to the underlying writer.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) writeAudio(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	_, err := w.Write(data)
	if err != nil {
		s.log.Warn("Failed to write audio response: %v", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		s.log.Warn("Failed to write JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
