// Package config provides the configuration structure for the speech-gateway.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// TTS engine selection values.
const (
	// EngineHTTP delegates synthesis to a standalone model-inference HTTP
	// service.
	EngineHTTP = "http"

	// EngineProcess shells out to a local synthesis binary.
	EngineProcess = "process"
)

// Static errors.
var (
	ErrUnknownTTSEngine = errors.New("unknown tts engine")
	ErrInvalidHTTPPort  = errors.New("http port must be between 1 and 65535")
	ErrInvalidChunkSize = errors.New("chunk target size must be non-negative")
)

// HTTPConfig holds the caller-facing HTTP server configuration.
type HTTPConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// STTServiceConfig holds the configuration for the external
// speech-recognition model service.
type STTServiceConfig struct {
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTSServiceConfig holds the configuration for the external voice-cloning
// speech-synthesis engine.
type TTSServiceConfig struct {
	Engine             string  `toml:"engine"`
	BaseURL            string  `toml:"base_url"`
	Command            string  `toml:"command"`
	ModelPath          string  `toml:"model_path"`
	Language           string  `toml:"language"`
	Temperature        float64 `toml:"temperature"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	EnableFallbackTone bool    `toml:"enable_fallback_tone"`
}

// ChunkingConfig holds the streamed-synthesis chunking parameters.
type ChunkingConfig struct {
	// TargetSize is the desired chunk length in characters. Zero selects
	// the built-in default.
	TargetSize int `toml:"target_size"`
}

// NATSConfig holds the configuration for the asynchronous job path. An
// empty URL disables it.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir        string `toml:"base_logs_dir"`
	ReferenceVoicesDir string `toml:"reference_voices_dir"`
}

// Config is the root configuration structure.
type Config struct {
	HTTP     HTTPConfig       `toml:"http"`
	STT      STTServiceConfig `toml:"stt_service"`
	TTS      TTSServiceConfig `toml:"tts_service"`
	Chunking ChunkingConfig   `toml:"chunking"`
	NATS     NATSConfig       `toml:"nats"`
	Paths    PathsConfig      `toml:"paths"`
}

// Load loads and validates the configuration for the speech-gateway.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that TOML decoding cannot express.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidHTTPPort, c.HTTP.Port)
	}

	if c.Chunking.TargetSize < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.Chunking.TargetSize)
	}

	switch c.TTS.Engine {
	case "", EngineHTTP, EngineProcess:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTTSEngine, c.TTS.Engine)
	}
}
