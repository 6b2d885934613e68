// Package config_test tests the configuration loading for the speech-gateway.
package config_test

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/config"
)

const validTOML = `
[http]
host = "0.0.0.0"
port = 8080
read_timeout_seconds = 30
write_timeout_seconds = 300

[stt_service]
base_url = "http://127.0.0.1:8001"
language = "en"
timeout_seconds = 60

[tts_service]
engine = "http"
base_url = "http://127.0.0.1:8002"
language = "en"
temperature = 0.7
timeout_seconds = 300
enable_fallback_tone = true

[chunking]
target_size = 150

[nats]
url = "nats://127.0.0.1:4222"
text_processed_subject = "text.processed"
audio_chunk_created_subject = "audio.chunk.created"
audio_object_store_bucket = "AUDIO_FILES"

[paths]
base_logs_dir = "/var/log/speech-gateway"
reference_voices_dir = "/srv/voices"
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(validTOML), &cfg)
	require.NoError(t, err)

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30, cfg.HTTP.ReadTimeoutSeconds)
	assert.Equal(t, "http://127.0.0.1:8001", cfg.STT.BaseURL)
	assert.Equal(t, "en", cfg.STT.Language)
	assert.Equal(t, config.EngineHTTP, cfg.TTS.Engine)
	assert.Equal(t, "http://127.0.0.1:8002", cfg.TTS.BaseURL)
	assert.InEpsilon(t, 0.7, cfg.TTS.Temperature, 0.001)
	assert.True(t, cfg.TTS.EnableFallbackTone)
	assert.Equal(t, 150, cfg.Chunking.TargetSize)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "text.processed", cfg.NATS.TextProcessedSubject)
	assert.Equal(t, "audio.chunk.created", cfg.NATS.AudioChunkCreatedSubject)
	assert.Equal(t, "AUDIO_FILES", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "/srv/voices", cfg.Paths.ReferenceVoicesDir)
}

func TestValidate_RejectsUnknownEngine(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	require.NoError(t, toml.Unmarshal([]byte(validTOML), &cfg))

	cfg.TTS.Engine = "onnx"

	require.ErrorIs(t, cfg.Validate(), config.ErrUnknownTTSEngine)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	require.NoError(t, toml.Unmarshal([]byte(validTOML), &cfg))

	cfg.HTTP.Port = 0

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidHTTPPort)
}

func TestValidate_RejectsNegativeChunkTarget(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	require.NoError(t, toml.Unmarshal([]byte(validTOML), &cfg))

	cfg.Chunking.TargetSize = -1

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidChunkSize)
}
