// Package metrics_test tests the gateway's Prometheus instrumentation.
package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/metrics"
)

// testMetrics is shared: promauto panics on duplicate registration.
var testMetrics = metrics.New()

var errStubEngine = errors.New("stub engine error")

type stubEngine struct {
	fail bool
}

func (s *stubEngine) Synthesize(
	_ context.Context,
	_ core.SynthesisRequest,
) ([]byte, error) {
	if s.fail {
		return nil, errStubEngine
	}

	return []byte("audio"), nil
}

func sampleCount(t *testing.T, histogram prometheus.Histogram) uint64 {
	t.Helper()

	var pb dto.Metric

	require.NoError(t, histogram.Write(&pb))

	return pb.GetHistogram().GetSampleCount()
}

func TestInstrumentSynthesizer_ObservesEveryCall(t *testing.T) {
	before := sampleCount(t, testMetrics.SynthesisDuration)

	engine := testMetrics.InstrumentSynthesizer(&stubEngine{})

	audio, err := engine.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi."})
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), audio)

	failing := testMetrics.InstrumentSynthesizer(&stubEngine{fail: true})

	_, err = failing.Synthesize(t.Context(), core.SynthesisRequest{Text: "Hi."})
	require.ErrorIs(t, err, errStubEngine)

	// Both the successful and the failed call are observed.
	assert.Equal(t, before+2, sampleCount(t, testMetrics.SynthesisDuration))
}
