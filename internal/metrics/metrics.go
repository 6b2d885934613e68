// Package metrics registers the gateway's Prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/book-expert/speech-gateway/internal/core"
)

// Metrics bundles the gateway's Prometheus collectors. All collectors are
// registered on the default registry at construction.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	TranscriptionsTotal  prometheus.Counter
	TranscriptionErrors  prometheus.Counter
	SynthesisChunksTotal prometheus.Counter
	SynthesisChunkErrors prometheus.Counter
	SynthesisDuration    prometheus.Histogram
	FallbackTonesTotal   prometheus.Counter
}

// New creates and registers the gateway's collectors.
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speech_gateway_http_requests_total",
				Help: "HTTP requests handled, by route and status code.",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "speech_gateway_http_request_duration_seconds",
				Help:    "HTTP request latency, by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TranscriptionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "speech_gateway_transcriptions_total",
				Help: "Audio transcriptions completed successfully.",
			},
		),
		TranscriptionErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "speech_gateway_transcription_errors_total",
				Help: "Audio transcriptions that failed.",
			},
		),
		SynthesisChunksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "speech_gateway_synthesis_chunks_total",
				Help: "Text chunks synthesized successfully.",
			},
		),
		SynthesisChunkErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "speech_gateway_synthesis_chunk_errors_total",
				Help: "Text chunks whose synthesis failed.",
			},
		),
		SynthesisDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "speech_gateway_synthesis_chunk_duration_seconds",
				Help:    "Per-chunk synthesis latency.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		FallbackTonesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "speech_gateway_fallback_tones_total",
				Help: "Responses served with a placeholder tone instead of speech.",
			},
		),
	}
}

// InstrumentSynthesizer wraps an engine so that every synthesis call is
// observed on the per-chunk latency histogram, failures included.
func (m *Metrics) InstrumentSynthesizer(engine core.Synthesizer) core.Synthesizer {
	return &timedSynthesizer{
		engine:    engine,
		histogram: m.SynthesisDuration,
	}
}

// timedSynthesizer measures the wall-clock duration of each engine call.
type timedSynthesizer struct {
	engine    core.Synthesizer
	histogram prometheus.Histogram
}

func (t *timedSynthesizer) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	started := time.Now()

	audio, err := t.engine.Synthesize(ctx, req)

	t.histogram.Observe(time.Since(started).Seconds())

	if err != nil {
		return nil, err
	}

	return audio, nil
}
