// Package stt provides the HTTP client for the speech-recognition model
// service.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/speech-gateway/internal/core"
)

// API endpoints of the recognition model service.
const (
	apiTranscribe = "/transcribe"
	apiHealth     = "/health"
)

// Multipart form fields.
const (
	fieldFile     = "file"
	fieldLanguage = "language"
	uploadName    = "audio.wav"
)

// Static errors.
var ErrAudioEmpty = errors.New("audio data cannot be empty")

// Client is an HTTP client for the standalone recognition model service. It
// implements core.Transcriber.
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
}

// NewClient creates a transcription client for the service at baseURL. The
// language is a hint forwarded with every request; empty lets the model
// auto-detect.
func NewClient(baseURL, language string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe uploads one audio blob and returns the recognized text together
// with the detected language and its probability.
func (c *Client) Transcribe(
	ctx context.Context,
	audio []byte,
) (core.Transcription, error) {
	if len(audio) == 0 {
		return core.Transcription{}, ErrAudioEmpty
	}

	body, contentType, err := c.buildMultipartBody(audio)
	if err != nil {
		return core.Transcription{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+apiTranscribe, body,
	)
	if err != nil {
		return core.Transcription{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Transcription{}, fmt.Errorf(
			"failed to send request to recognition service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(resp.Body)

		return core.Transcription{}, fmt.Errorf(
			"recognition service returned non-OK status: %s, body: %s",
			resp.Status,
			string(responseBody),
		)
	}

	var result core.Transcription

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return core.Transcription{}, fmt.Errorf(
			"failed to decode transcription response: %w", err,
		)
	}

	return result, nil
}

// HealthCheck verifies that the recognition model service is reachable and
// reports healthy.
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

// buildMultipartBody packs the audio blob and the language hint into a
// multipart form.
func (c *Client) buildMultipartBody(audio []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldFile, uploadName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(audio)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	if c.language != "" {
		err = writer.WriteField(fieldLanguage, c.language)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write language field: %w", err)
		}
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
