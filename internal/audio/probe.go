package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Info describes a verified WAV file
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ProbeWAV verifies that the file at path is a decodable RIFF/WAVE container
// and returns its format parameters. The synthesis subprocess can die mid-write
// (timeout, OOM) and leave a truncated file behind; everything served to a
// client goes through this check first.
func ProbeWAV(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav duration from %s: %w", path, err)
	}

	return &Info{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Duration:   duration,
	}, nil
}
