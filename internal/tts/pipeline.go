package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vocalio/tts-gateway/internal/modelcache"
	"github.com/vocalio/tts-gateway/internal/observability"
	"github.com/vocalio/tts-gateway/internal/reference"
	"github.com/vocalio/tts-gateway/internal/resilience"
)

// Pipeline is the request-to-artifact flow: normalize text, resolve
// references, locate model artifacts, build and run the CLI invocation,
// resolve and optionally transcode the output.
type Pipeline struct {
	InputDir  string
	OutputDir string
	Device    string

	Normalizer Normalizer
	References *reference.Resolver
	Locator    modelcache.Locator
	Builder    InvocationBuilder
	Executor   *Executor
	Transcoder *Transcoder
	Limiter    *resilience.Limiter

	Log zerolog.Logger
}

// Synthesize runs the full pipeline for one request
func (p *Pipeline) Synthesize(ctx context.Context, req *SpeechRequest) (*Artifact, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}

	format := req.Format()
	if format != FormatWAV && format != FormatMP3 {
		return nil, ErrUnsupportedFormat
	}

	log := p.Log.With().
		Int("input_chars", len([]rune(req.Input))).
		Str("format", format).
		Bool("has_ref_audio", req.RefAudio != "").
		Bool("has_ref_text", req.RefText != "").
		Logger()

	if err := os.MkdirAll(p.InputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create input dir: %w", err)
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	genText, err := p.Normalizer.Process(ctx, req.Input)
	if err != nil {
		observability.RecordError("normalize", "accent")
		return nil, fmt.Errorf("text normalization failed: %w", err)
	}

	refAudio, err := p.References.ResolveAudio(ctx, req.RefAudio)
	if err != nil {
		observability.RecordError("fetch", "reference")
		return nil, err
	}

	refText, err := p.References.ResolveText(ctx, req.RefText)
	if err != nil {
		observability.RecordError("fetch", "reference")
		return nil, err
	}

	paths, err := p.Locator.Locate()
	if err != nil {
		observability.RecordError("locate", "modelcache")
		return nil, err
	}

	outputFile := "out_" + uuid.New().String() + ".wav"
	expected := filepath.Join(p.OutputDir, outputFile)

	inv, err := p.Builder.Build(BuildInputs{
		Checkpoint: paths.Checkpoint,
		Vocab:      paths.Vocab,
		GenText:    genText,
		OutputDir:  p.OutputDir,
		OutputFile: outputFile,
		Device:     p.Device,
		RefAudio:   refAudio,
		RefText:    refText,
		Request:    req,
	})
	if err != nil {
		return nil, err
	}

	if err := p.Limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("request abandoned while queued: %w", err)
	}
	defer p.Limiter.Release()

	start := time.Now()
	observability.RecordSynthesisStart()

	runErr := p.Executor.Run(ctx, inv)
	observability.RecordSynthesisEnd(start, runErr == nil)
	if runErr != nil {
		return nil, runErr
	}

	final, err := resolveOutput(expected, p.OutputDir)
	if err != nil {
		observability.RecordError("no_output", "tts")
		return nil, err
	}
	if err := verifyOutput(final); err != nil {
		observability.RecordError("invalid_output", "tts")
		return nil, err
	}

	mediaType := "audio/wav"
	if format == FormatMP3 {
		final, err = p.Transcoder.ToMP3(ctx, final)
		if err != nil {
			observability.RecordError("transcode", "tts")
			return nil, err
		}
		mediaType = "audio/mpeg"
	}

	if info, statErr := os.Stat(final); statErr == nil {
		observability.RecordAudioBytes(format, info.Size())
	}

	log.Info().
		Str("artifact", final).
		Dur("synthesis", time.Since(start)).
		Msg("Synthesis complete")

	return &Artifact{
		Path:      final,
		MediaType: mediaType,
		Filename:  filepath.Base(final),
	}, nil
}
