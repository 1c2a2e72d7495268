package tts

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for request validation.
var (
	// ErrEmptyInput is returned when the input text is empty after trimming.
	ErrEmptyInput = errors.New("tts: input text required")

	// ErrUnsupportedFormat is returned for an out_format other than wav or mp3.
	ErrUnsupportedFormat = errors.New("tts: out_format must be wav or mp3")
)

// SynthesisError is returned when the synthesis CLI exits non-zero.
type SynthesisError struct {
	ExitCode int
	Stderr   string // truncated to a bounded size
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts: synthesis failed (exit %d): %s", e.ExitCode, e.Stderr)
}

// TimeoutError is returned when synthesis exceeds its wall-clock budget.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tts: synthesis timed out after %s", e.Limit)
}

// NoOutputError is returned when no usable waveform was produced in the
// scanned output directory.
type NoOutputError struct {
	Dir    string
	Reason string
}

func (e *NoOutputError) Error() string {
	return fmt.Sprintf("tts: no output produced in %s: %s", e.Dir, e.Reason)
}

// TranscodeError is returned when the WAV to MP3 conversion fails.
type TranscodeError struct {
	Path string
	Err  error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("tts: failed to transcode %s: %v", e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
