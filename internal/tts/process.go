package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/core"
)

// Static errors.
var (
	ErrCommandNotConfigured = errors.New("synthesis command not configured")
	ErrProcessEmptyAudio    = errors.New("synthesis process produced no audio")
)

// ProcessEngine synthesizes speech by invoking a local inference binary per
// chunk. It implements core.Synthesizer for deployments that run the model
// on the same host instead of behind an HTTP service.
type ProcessEngine struct {
	log         *logger.Logger
	command     string
	modelPath   string
	temperature float64
}

// NewProcessEngine creates an exec-based synthesis engine. The command is
// the inference binary; modelPath points at its weights file.
func NewProcessEngine(
	command, modelPath string,
	temperature float64,
	log *logger.Logger,
) *ProcessEngine {
	return &ProcessEngine{
		log:         log,
		command:     command,
		modelPath:   modelPath,
		temperature: temperature,
	}
}

// Synthesize runs the inference binary for one chunk of text and returns the
// WAV bytes it wrote. The binary is invoked once per call; cancellation of
// ctx kills the process.
func (p *ProcessEngine) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	if p.command == "" {
		return nil, ErrCommandNotConfigured
	}

	outputFile, err := os.CreateTemp("", "synth-chunk-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output file: %w", err)
	}

	outputPath := outputFile.Name()

	err = outputFile.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close temporary output file: %w", err)
	}

	defer func() {
		removeErr := os.Remove(outputPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			p.log.Warn("Failed to remove temporary file %s: %v", outputPath, removeErr)
		}
	}()

	args := p.buildArgs(req, outputPath)

	cmd := exec.CommandContext(ctx, p.command, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf(
			"synthesis command failed: %w, output: %s",
			err,
			string(output),
		)
	}

	audioData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrProcessEmptyAudio
	}

	return audioData, nil
}

// buildArgs assembles the inference binary's command line. Optional inputs
// are omitted rather than passed empty so the binary's own defaults apply.
func (p *ProcessEngine) buildArgs(req core.SynthesisRequest, outputPath string) []string {
	args := []string{
		"--model", p.modelPath,
		"--text", req.Text,
		"--output", outputPath,
		"--temperature", strconv.FormatFloat(p.temperature, 'f', -1, 64),
	}

	if req.VoicePath != "" {
		args = append(args, "--reference", req.VoicePath)
	}

	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}

	return args
}
