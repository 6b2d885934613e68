// main package for the speech-client, a small CLI against the gateway API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Flag descriptions.
const (
	flagServerDesc     = "Gateway base URL"
	flagTextDesc       = "Text to convert to speech"
	flagVoiceDesc      = "Reference voice name"
	flagStreamDesc     = "Stream audio chunks as they are synthesized"
	flagOutputDesc     = "Output file path (.wav)"
	flagTranscribeDesc = "Audio file to transcribe"
	flagHealthDesc     = "Check gateway health and exit"
)

const (
	defaultServerURL  = "http://localhost:8080"
	defaultOutputFile = "output.wav"
	requestTimeout    = 10 * time.Minute
)

// Static errors.
var (
	ErrNoAction      = errors.New("either -text, -transcribe or -health must be provided")
	ErrNonOKResponse = errors.New("gateway returned non-OK status")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server     string
	text       string
	voice      string
	output     string
	transcribe string
	stream     bool
	health     bool
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case flags.health:
		return checkHealth(ctx, flags.server)
	case flags.transcribe != "":
		return transcribeFile(ctx, flags.server, flags.transcribe)
	case flags.text != "":
		return synthesizeText(ctx, flags)
	default:
		flag.Usage()

		return ErrNoAction
	}
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, "server", defaultServerURL, flagServerDesc)
	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.voice, "voice", "", flagVoiceDesc)
	flag.StringVar(&flags.output, "output", "", flagOutputDesc)
	flag.StringVar(&flags.transcribe, "transcribe", "", flagTranscribeDesc)
	flag.BoolVar(&flags.stream, "stream", false, flagStreamDesc)
	flag.BoolVar(&flags.health, "health", false, flagHealthDesc)
	flag.Parse()

	return flags
}

func checkHealth(ctx context.Context, serverURL string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, serverURL+"/health", http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	fmt.Printf("%s\n", bytes.TrimSpace(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrNonOKResponse, resp.Status)
	}

	return nil
}

func synthesizeText(ctx context.Context, flags appFlags) error {
	payload, err := json.Marshal(map[string]any{
		"text":   flags.text,
		"voice":  flags.voice,
		"stream": flags.stream,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		flags.server+"/v1/synthesize",
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("%w: %s, body: %s", ErrNonOKResponse, resp.Status, body)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = defaultOutputFile
	}

	err = writeResponseToFile(resp.Body, outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

// writeResponseToFile copies the response stream to disk as it arrives, so
// streamed synthesis does not buffer the whole utterance in memory.
func writeResponseToFile(body io.Reader, outputPath string) error {
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	_, copyErr := io.Copy(outputFile, body)
	closeErr := outputFile.Close()

	if copyErr != nil {
		return fmt.Errorf("failed to write audio: %w", copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close output file: %w", closeErr)
	}

	return nil
}

func transcribeFile(ctx context.Context, serverURL, audioPath string) error {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(audioData)
	if err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, serverURL+"/v1/transcribe", body,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"%w: %s, body: %s", ErrNonOKResponse, resp.Status, responseBody,
		)
	}

	fmt.Printf("%s\n", bytes.TrimSpace(responseBody))

	return nil
}
