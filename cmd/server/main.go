package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocalio/tts-gateway/internal/accent"
	"github.com/vocalio/tts-gateway/internal/api"
	"github.com/vocalio/tts-gateway/internal/config"
	"github.com/vocalio/tts-gateway/internal/modelcache"
	"github.com/vocalio/tts-gateway/internal/observability"
	"github.com/vocalio/tts-gateway/internal/reference"
	"github.com/vocalio/tts-gateway/internal/resilience"
	"github.com/vocalio/tts-gateway/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("device", cfg.Device).
		Str("model_repo", cfg.ModelRepo).
		Str("invocation_style", cfg.InvocationStyle).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("TTS Gateway starting")

	// Fail fast when external binaries are absent
	if _, err := exec.LookPath(cfg.SynthBin); err != nil {
		logger.Fatal().Err(err).Str("binary", cfg.SynthBin).Msg("Synthesis CLI not found in PATH")
	}
	if _, err := exec.LookPath(cfg.FFmpegBin); err != nil {
		logger.Fatal().Err(err).Str("binary", cfg.FFmpegBin).Msg("Transcoder not found in PATH")
	}

	// Staging and output directories
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.InputDir).Msg("Failed to create input directory")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("Failed to create output directory")
	}

	// The accent model is expensive; it loads once in a helper process that
	// lives as long as the service. Annotation quality is not optional, so a
	// broken helper stops the boot.
	annotator, err := accent.Start(accent.Options{
		Binary:        cfg.AccentBin,
		ModelSize:     cfg.AccentModelSize,
		UseDictionary: cfg.AccentUseDictionary,
		TinyMode:      cfg.AccentTinyMode,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start accent annotator")
	}
	defer annotator.Close()

	locator := modelcache.NewCacheLocator(
		cfg.ModelCacheDir,
		cfg.ModelRepo,
		cfg.ModelCkptSubpath,
		cfg.ModelVocabSubpath,
	)

	// Prefetch check is advisory only: a missing model at boot is logged,
	// and the first real request will fail loudly if it is still absent.
	if paths, err := locator.Locate(); err != nil {
		logger.Warn().Err(err).Msg("Model artifacts not found at startup")
	} else {
		logger.Info().
			Str("checkpoint", paths.Checkpoint).
			Str("vocab", paths.Vocab).
			Msg("Model artifacts located")
	}

	pipeline := &tts.Pipeline{
		InputDir:   cfg.InputDir,
		OutputDir:  cfg.OutputDir,
		Device:     cfg.Device,
		Normalizer: annotator,
		References: reference.NewResolver(
			cfg.InputDir,
			cfg.FetchTimeoutDuration(),
			cfg.RefAudioPath,
			cfg.RefTextPath,
			logger,
		),
		Locator:    locator,
		Builder:    newBuilder(cfg),
		Executor:   &tts.Executor{Timeout: cfg.SynthTimeoutDuration(), Log: logger},
		Transcoder: &tts.Transcoder{Binary: cfg.FFmpegBin},
		Limiter:    resilience.NewLimiter(cfg.MaxConcurrentSynth),
		Log:        logger,
	}

	// Create HTTP server
	mux := http.NewServeMux()

	// Synthesis endpoint
	mux.HandleFunc("/v1/audio/speech", api.HandleSpeech(pipeline))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	mux.HandleFunc("/ready", observability.ReadinessHandler(
		observability.Check{Name: "synth_cli", Fn: binaryCheck(cfg.SynthBin)},
		observability.Check{Name: "transcoder", Fn: binaryCheck(cfg.FFmpegBin)},
		observability.Check{Name: "model_artifacts", Fn: locatorCheck(locator)},
		observability.Check{Name: "annotator", Fn: annotatorCheck(annotator)},
	))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server. Write timeout is generous because a synthesis call
	// can legitimately run for minutes before the response body starts.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.SynthTimeoutDuration() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/v1/audio/speech", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// newBuilder selects the invocation style from configuration
func newBuilder(cfg *config.Config) tts.InvocationBuilder {
	if cfg.InvocationStyle == config.InvocationConfigFile {
		return &tts.ConfigFileBuilder{Binary: cfg.SynthBin, StagingDir: cfg.InputDir}
	}
	return &tts.ArgsBuilder{Binary: cfg.SynthBin}
}

func binaryCheck(name string) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if _, err := exec.LookPath(name); err != nil {
			return false, err
		}
		return true, nil
	}
}

func locatorCheck(locator modelcache.Locator) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if _, err := locator.Locate(); err != nil {
			return false, err
		}
		return true, nil
	}
}

func annotatorCheck(a *accent.Annotator) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if !a.Alive() {
			return false, accent.ErrAnnotatorClosed
		}
		return true, nil
	}
}
