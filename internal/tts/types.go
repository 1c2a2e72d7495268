// Package tts turns a speech request into an external CLI invocation and
// resolves the audio artifact the CLI produces.
package tts

import "context"

// Output formats
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// SpeechRequest is the JSON body of POST /v1/audio/speech. Optional generation
// parameters are pointers so "not specified" is distinguishable from an
// explicit zero — speed=0 set by the caller is still forwarded to the CLI.
type SpeechRequest struct {
	Input     string `json:"input"`
	OutFormat string `json:"out_format,omitempty"`
	RefAudio  string `json:"ref_audio,omitempty"`
	RefText   string `json:"ref_text,omitempty"`

	VocoderName       string   `json:"vocoder_name,omitempty"`
	RemoveSilence     *bool    `json:"remove_silence,omitempty"`
	TargetRMS         *float64 `json:"target_rms,omitempty"`
	Speed             *float64 `json:"speed,omitempty"`
	CFGStrength       *float64 `json:"cfg_strength,omitempty"`
	NFEStep           *int     `json:"nfe_step,omitempty"`
	FixDuration       *bool    `json:"fix_duration,omitempty"`
	CrossFadeDuration *float64 `json:"cross_fade_duration,omitempty"`
	SaveChunk         *bool    `json:"save_chunk,omitempty"`
}

// Format returns the normalized output format
func (r *SpeechRequest) Format() string {
	if r.OutFormat == "" {
		return FormatWAV
	}
	return normalizeFormat(r.OutFormat)
}

// Artifact is the final audio file handed back to the HTTP layer
type Artifact struct {
	Path      string
	MediaType string
	Filename  string
}

// Invocation is the external process call derived from a request: a binary
// plus a discrete argument vector. Arguments are never joined into a shell
// string; adversarial text in input or ref_text stays inert.
type Invocation struct {
	Binary string
	Args   []string
}

// BuildInputs carries everything an InvocationBuilder needs
type BuildInputs struct {
	Checkpoint string
	Vocab      string
	GenText    string
	OutputDir  string
	OutputFile string // basename of the expected wav inside OutputDir
	Device     string
	RefAudio   string // local path, "" when absent
	RefText    string // sanitized text, "" when absent
	Request    *SpeechRequest
}

// InvocationBuilder maps resolved inputs onto a CLI invocation
type InvocationBuilder interface {
	Build(in BuildInputs) (*Invocation, error)
}

// Normalizer annotates input text before synthesis
type Normalizer interface {
	Process(ctx context.Context, text string) (string, error)
}
