// main package for the speech-gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/speech-gateway/internal/config"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/metrics"
	"github.com/book-expert/speech-gateway/internal/objectstore"
	"github.com/book-expert/speech-gateway/internal/server"
	"github.com/book-expert/speech-gateway/internal/stt"
	"github.com/book-expert/speech-gateway/internal/synth"
	"github.com/book-expert/speech-gateway/internal/tts"
	"github.com/book-expert/speech-gateway/internal/voices"
	"github.com/book-expert/speech-gateway/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "speech-gateway.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A temporary logger carries the bootstrap until the configured log
	// directory is known.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runWithConfig(cfg, finalLog)
}

func runWithConfig(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	gatewayMetrics := metrics.New()

	engine, checkers := buildEngine(cfg, log)
	driver := synth.NewDriver(gatewayMetrics.InstrumentSynthesizer(engine), log)
	resolver := voices.NewResolver(cfg.Paths.ReferenceVoicesDir)

	transcriber := stt.NewClient(
		cfg.STT.BaseURL,
		cfg.STT.Language,
		time.Duration(cfg.STT.TimeoutSeconds)*time.Second,
	)
	checkers["stt"] = transcriber

	httpServer := server.New(server.Options{
		Log:             log,
		Driver:          driver,
		Transcriber:     transcriber,
		Fallback:        tts.NewFallbackSynthesizer(log),
		Voices:          resolver,
		Metrics:         gatewayMetrics,
		HealthCheckers:  checkers,
		Addr:            fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		ChunkTargetSize: cfg.Chunking.TargetSize,
		FallbackEnabled: cfg.TTS.EnableFallbackTone,
		ReadTimeout:     time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	})

	errChan := make(chan error, 2)

	go func() {
		errChan <- httpServer.Start()
	}()

	if cfg.NATS.URL != "" {
		err := startWorker(ctx, cfg, log, driver, resolver, errChan)
		if err != nil {
			return err
		}
	}

	log.System(
		"Speech gateway initialized on %s:%d.", cfg.HTTP.Host, cfg.HTTP.Port,
	)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received.")
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}

// buildEngine selects the synthesis engine from configuration.
func buildEngine(
	cfg *config.Config,
	log *logger.Logger,
) (core.Synthesizer, map[string]server.HealthChecker) {
	checkers := make(map[string]server.HealthChecker)

	if cfg.TTS.Engine == config.EngineProcess {
		return tts.NewProcessEngine(
			cfg.TTS.Command,
			cfg.TTS.ModelPath,
			cfg.TTS.Temperature,
			log,
		), checkers
	}

	client := tts.NewClient(
		cfg.TTS.BaseURL,
		time.Duration(cfg.TTS.TimeoutSeconds)*time.Second,
	)
	checkers["tts"] = client

	return client, checkers
}

// startWorker connects to NATS and launches the asynchronous job consumer.
func startWorker(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	driver *synth.Driver,
	resolver *voices.Resolver,
	errChan chan error,
) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	natsWorker := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.TextProcessedSubject,
		cfg.NATS.AudioChunkCreatedSubject,
		store,
		driver,
		resolver,
		cfg.Chunking.TargetSize,
		log,
	)

	go func() {
		runErr := natsWorker.Run(ctx)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			errChan <- runErr
		}
	}()

	log.System(
		"Listening for synthesis jobs on subject: %s",
		cfg.NATS.TextProcessedSubject,
	)

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
