// Package tts provides the speech-synthesis engines behind the gateway.
//
// The primary engine delegates to a standalone model-inference HTTP service;
// an exec-based engine and a deterministic fallback cover deployments
// without one. All engines satisfy core.Synthesizer and are sequenced by the
// synth driver: none of them is safe for concurrent invocation.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/speech-gateway/internal/core"
)

// API endpoints of the synthesis model service.
const (
	apiSynthesize = "/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Static errors.
var (
	ErrTextEmpty             = errors.New("text cannot be empty")
	ErrReceivedEmptyAudio    = errors.New("received empty audio data")
	ErrUnexpectedContentType = errors.New("unexpected content type")
)

// synthesizeRequest is the JSON payload of the model service's synthesis
// endpoint.
type synthesizeRequest struct {
	// Text contains the input text to convert to speech.
	Text string `json:"text"`

	// ReferencePath is a server-side path to a reference audio sample for
	// voice cloning. Empty selects the model's default voice.
	ReferencePath string `json:"reference_path,omitempty"`

	// Language is the target language code (e.g. "en").
	Language string `json:"language,omitempty"`

	// Stream is always false: the gateway performs its own chunked
	// streaming and requires each response to be one complete WAV blob.
	Stream bool `json:"stream"`
}

// errorResponse is the structured JSON error of the model service.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Client is an HTTP client for the standalone synthesis model service. It
// implements core.Synthesizer.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a synthesis client for the service at baseURL
// (protocol and port included, e.g. "http://localhost:8002"). The timeout
// applies to every request; synthesis of a long chunk can take the full
// model-dependent duration, so it should be generous.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends one synthesis request and returns the WAV audio bytes.
// The call blocks until the model has produced the complete blob.
func (c *Client) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, err := json.Marshal(synthesizeRequest{
		Text:          req.Text,
		ReferencePath: req.VoicePath,
		Language:      req.Language,
		Stream:        false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to synthesis service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(
			"%w: expected %s, got %s",
			ErrUnexpectedContentType, contentTypeWAV, contentType,
		)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis model service is reachable and
// reports healthy. It is performed before processing workloads to fail fast.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error from the service,
// falling back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(
			"synthesis service error (%s): %s",
			resp.Status, errorResp.Detail,
		)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"synthesis service returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
