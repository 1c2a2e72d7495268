package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vocalio/tts-gateway/internal/modelcache"
	"github.com/vocalio/tts-gateway/internal/reference"
	"github.com/vocalio/tts-gateway/internal/resilience"
)

// passthroughNormalizer mimics the annotator contract without a helper process
type passthroughNormalizer struct {
	calls int
}

func (n *passthroughNormalizer) Process(ctx context.Context, text string) (string, error) {
	n.calls++
	return text + " ", nil
}

// writeSynthScript writes a stand-in synthesis CLI that copies a pre-made wav
// into --output_dir/--output_file and records that it ran.
func writeSynthScript(t *testing.T, dir, srcWAV, marker string) string {
	t.Helper()

	script := filepath.Join(dir, "fake-synth")
	body := fmt.Sprintf(`#!/bin/sh
touch %q
out_dir=""
out_file=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out_dir="$2"; shift 2;;
    --output_file) out_file="$2"; shift 2;;
    *) shift;;
  esac
done
cp %q "$out_dir/$out_file"
`, marker, srcWAV)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write synth script: %v", err)
	}
	return script
}

func newTestPipeline(t *testing.T) (*Pipeline, *passthroughNormalizer, string) {
	t.Helper()

	base := t.TempDir()
	inputDir := filepath.Join(base, "input")
	outputDir := filepath.Join(base, "output")

	srcWAV := filepath.Join(base, "src.wav")
	writeValidWAV(t, srcWAV)

	marker := filepath.Join(base, "synth-ran")
	synthBin := writeSynthScript(t, base, srcWAV, marker)

	ckpt := filepath.Join(base, "model.safetensors")
	vocab := filepath.Join(base, "vocab.txt")
	os.WriteFile(ckpt, []byte("weights"), 0o644)
	os.WriteFile(vocab, []byte("vocab"), 0o644)

	norm := &passthroughNormalizer{}
	p := &Pipeline{
		InputDir:   inputDir,
		OutputDir:  outputDir,
		Device:     "cpu",
		Normalizer: norm,
		References: reference.NewResolver(inputDir, 5*time.Second, "", "", zerolog.Nop()),
		Locator:    &modelcache.FixedLocator{Checkpoint: ckpt, Vocab: vocab},
		Builder:    &ArgsBuilder{Binary: synthBin},
		Executor:   &Executor{Timeout: 10 * time.Second, Log: zerolog.Nop()},
		Transcoder: &Transcoder{Binary: "false"},
		Limiter:    resilience.NewLimiter(0),
		Log:        zerolog.Nop(),
	}
	return p, norm, marker
}

func TestPipeline_EndToEndWAV(t *testing.T) {
	p, norm, _ := newTestPipeline(t)

	artifact, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if artifact.MediaType != "audio/wav" {
		t.Errorf("Expected audio/wav, got %q", artifact.MediaType)
	}
	if filepath.Ext(artifact.Filename) != ".wav" {
		t.Errorf("Expected wav filename, got %q", artifact.Filename)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Errorf("Artifact missing on disk: %v", err)
	}
	if norm.calls != 1 {
		t.Errorf("Expected one normalization call, got %d", norm.calls)
	}
}

func TestPipeline_EndToEndMP3(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	// Stand-in ffmpeg that copies -i input to the last positional arg
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-ffmpeg")
	body := "#!/bin/sh\nin=\"\"\nwhile [ $# -gt 1 ]; do\n  if [ \"$1\" = \"-i\" ]; then in=\"$2\"; shift; fi\n  shift\ndone\ncp \"$in\" \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	p.Transcoder = &Transcoder{Binary: script}

	artifact, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет", OutFormat: "mp3"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if artifact.MediaType != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %q", artifact.MediaType)
	}
	if filepath.Ext(artifact.Path) != ".mp3" {
		t.Errorf("Expected .mp3 artifact, got %q", artifact.Path)
	}
}

func TestPipeline_EmptyInput(t *testing.T) {
	p, norm, marker := newTestPipeline(t)

	for _, input := range []string{"", "   ", "\n\t "} {
		_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: input})
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Synthesize(%q): expected ErrEmptyInput, got %v", input, err)
		}
	}

	// Validation must reject before any side effect
	if norm.calls != 0 {
		t.Errorf("Normalizer must not run for empty input, ran %d times", norm.calls)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("Synthesis subprocess must not run for empty input")
	}
}

func TestPipeline_UnsupportedFormat(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "x", OutFormat: "ogg"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestPipeline_ModelMissing(t *testing.T) {
	p, _, marker := newTestPipeline(t)
	p.Locator = &modelcache.FixedLocator{
		Checkpoint: "/missing/model.safetensors",
		Vocab:      "/missing/vocab.txt",
	}

	_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет"})

	var notFound *modelcache.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("Synthesis subprocess must not run when model artifacts are missing")
	}
}

func TestPipeline_FetchFailureSkipsSynthesis(t *testing.T) {
	p, _, marker := newTestPipeline(t)

	_, err := p.Synthesize(context.Background(), &SpeechRequest{
		Input:    "Привет",
		RefAudio: "http://127.0.0.1:1/unreachable.wav",
	})

	var fetchErr *reference.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("Synthesis subprocess must not run after a reference fetch failure")
	}
}

func TestPipeline_SynthesisFailure(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Builder = &ArgsBuilder{Binary: "false"}

	_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет"})

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
}

func TestPipeline_Timeout(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	// Stand-in CLI that hangs regardless of its flags
	script := filepath.Join(t.TempDir(), "slow-synth")
	os.WriteFile(script, []byte("#!/bin/sh\nsleep 10\n"), 0o755)
	p.Builder = &ArgsBuilder{Binary: script}
	p.Executor = &Executor{Timeout: 100 * time.Millisecond, Log: zerolog.Nop()}

	_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет"})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected TimeoutError, got %v", err)
	}
}

func TestPipeline_NoOutputProduced(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Builder = &ArgsBuilder{Binary: "true"} // exits 0 without writing anything

	_, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "Привет"})

	var noOutput *NoOutputError
	if !errors.As(err, &noOutput) {
		t.Fatalf("Expected NoOutputError, got %v", err)
	}
}

func TestPipeline_DistinctOutputFilenames(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	first, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "раз"})
	if err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	second, err := p.Synthesize(context.Background(), &SpeechRequest{Input: "два"})
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}

	if first.Path == second.Path {
		t.Errorf("Output filenames must never collide, both were %q", first.Path)
	}
}
