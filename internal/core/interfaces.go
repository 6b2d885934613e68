// Package core defines the core business logic and interfaces for the speech-gateway.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SynthesisRequest holds the parameters for one synthesis call.
// VoicePath is a server-side path to a reference audio sample used by the
// voice-cloning model to condition its output timbre. An empty path selects
// the model's default voice.
type SynthesisRequest struct {
	Text      string
	VoicePath string
	Language  string
}

// Synthesizer defines the interface for a text-to-speech engine.
//
// Implementations may block for an arbitrary, model-dependent duration and
// are not reentrant: callers must sequence their calls. The returned bytes
// are a complete, independently decodable WAV container.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// Transcription is the result of one speech-to-text call.
type Transcription struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
}

// Transcriber defines the interface for a speech-to-text engine.
// The audio payload is a WAV container (mono, 16-bit PCM).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (Transcription, error)
}
