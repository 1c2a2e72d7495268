package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// ArgsBuilder produces a flag-vector invocation. This is the default style:
// every value travels as its own argv entry, so there is no escaping surface.
type ArgsBuilder struct {
	Binary string
}

// Build assembles the argument list. Unset optional parameters are omitted
// entirely; explicitly-set values are always emitted, zero or not.
func (b *ArgsBuilder) Build(in BuildInputs) (*Invocation, error) {
	args := []string{
		"--ckpt_file", in.Checkpoint,
		"--vocab_file", in.Vocab,
		"--gen_text", in.GenText,
		"--output_dir", in.OutputDir,
		"--output_file", in.OutputFile,
		"--device", in.Device,
	}

	if in.RefAudio != "" {
		args = append(args, "--ref_audio", in.RefAudio)
	}
	if in.RefText != "" {
		args = append(args, "--ref_text", in.RefText)
	}

	req := in.Request
	if req.VocoderName != "" {
		args = append(args, "--vocoder_name", req.VocoderName)
	}
	if req.RemoveSilence != nil {
		args = append(args, "--remove_silence", strconv.FormatBool(*req.RemoveSilence))
	}
	if req.TargetRMS != nil {
		args = append(args, "--target_rms", formatFloat(*req.TargetRMS))
	}
	if req.Speed != nil {
		args = append(args, "--speed", formatFloat(*req.Speed))
	}
	if req.CFGStrength != nil {
		args = append(args, "--cfg_strength", formatFloat(*req.CFGStrength))
	}
	if req.NFEStep != nil {
		args = append(args, "--nfe_step", strconv.Itoa(*req.NFEStep))
	}
	if req.FixDuration != nil {
		args = append(args, "--fix_duration", strconv.FormatBool(*req.FixDuration))
	}
	if req.CrossFadeDuration != nil {
		args = append(args, "--cross_fade_duration", formatFloat(*req.CrossFadeDuration))
	}
	if req.SaveChunk != nil {
		args = append(args, "--save_chunk", strconv.FormatBool(*req.SaveChunk))
	}

	return &Invocation{Binary: b.Binary, Args: args}, nil
}

// cliConfig mirrors the CLI's -c config file schema. Pointers with omitempty
// keep unset parameters out of the file.
type cliConfig struct {
	CkptFile   string `toml:"ckpt_file"`
	VocabFile  string `toml:"vocab_file"`
	GenText    string `toml:"gen_text"`
	OutputDir  string `toml:"output_dir"`
	OutputFile string `toml:"output_file"`
	Device     string `toml:"device"`

	RefAudio string `toml:"ref_audio,omitempty"`
	RefText  string `toml:"ref_text,omitempty"`

	VocoderName       string   `toml:"vocoder_name,omitempty"`
	RemoveSilence     *bool    `toml:"remove_silence,omitempty"`
	TargetRMS         *float64 `toml:"target_rms,omitempty"`
	Speed             *float64 `toml:"speed,omitempty"`
	CFGStrength       *float64 `toml:"cfg_strength,omitempty"`
	NFEStep           *int     `toml:"nfe_step,omitempty"`
	FixDuration       *bool    `toml:"fix_duration,omitempty"`
	CrossFadeDuration *float64 `toml:"cross_fade_duration,omitempty"`
	SaveChunk         *bool    `toml:"save_chunk,omitempty"`
}

// ConfigFileBuilder generates a declarative config file and invokes the CLI
// with a single -c flag. The file goes through a real TOML serializer — hand
// templating a structured format is how quotes, newlines and backslashes in
// user text end up corrupting the config.
type ConfigFileBuilder struct {
	Binary     string
	StagingDir string
}

// Build writes the config file into the staging directory and returns the
// -c invocation pointing at it.
func (b *ConfigFileBuilder) Build(in BuildInputs) (*Invocation, error) {
	req := in.Request
	cfg := cliConfig{
		CkptFile:          in.Checkpoint,
		VocabFile:         in.Vocab,
		GenText:           in.GenText,
		OutputDir:         in.OutputDir,
		OutputFile:        in.OutputFile,
		Device:            in.Device,
		RefAudio:          in.RefAudio,
		RefText:           in.RefText,
		VocoderName:       req.VocoderName,
		RemoveSilence:     req.RemoveSilence,
		TargetRMS:         req.TargetRMS,
		Speed:             req.Speed,
		CFGStrength:       req.CFGStrength,
		NFEStep:           req.NFEStep,
		FixDuration:       req.FixDuration,
		CrossFadeDuration: req.CrossFadeDuration,
		SaveChunk:         req.SaveChunk,
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to serialize invocation config: %w", err)
	}

	if err := os.MkdirAll(b.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: failed to create staging dir: %w", err)
	}

	path := filepath.Join(b.StagingDir, "infer_"+uuid.New().String()+".toml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("tts: failed to write invocation config: %w", err)
	}

	return &Invocation{Binary: b.Binary, Args: []string{"-c", path}}, nil
}

// formatFloat renders a float the way the CLI expects: minimal decimal form,
// always with a decimal point (1.0, not 1).
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
