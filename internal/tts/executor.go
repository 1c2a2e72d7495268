package tts

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// stderr capture cap in the error surfaced to callers
const maxStderrBytes = 1000

// Executor runs the synthesis CLI synchronously under a wall-clock budget
type Executor struct {
	Timeout time.Duration
	Log     zerolog.Logger
}

// Run executes the invocation. A deadline overrun kills the process and
// returns TimeoutError; a non-zero exit returns SynthesisError with a bounded
// stderr capture. Output is captured, never interpreted, and nothing is
// retried — a half-written waveform from a blind retry is worse than the
// original failure.
func (e *Executor) Run(ctx context.Context, inv *Invocation) error {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	// #nosec G204 -- the binary comes from deployment config and every
	// argument travels as a discrete argv entry
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		e.Log.Error().Dur("elapsed", elapsed).Str("binary", inv.Binary).Msg("Synthesis timed out")
		return &TimeoutError{Limit: e.Timeout}
	}

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		e.Log.Error().
			Int("exit_code", exitCode).
			Dur("elapsed", elapsed).
			Str("binary", inv.Binary).
			Msg("Synthesis process failed")

		return &SynthesisError{ExitCode: exitCode, Stderr: truncate(stderr.String(), maxStderrBytes)}
	}

	e.Log.Debug().Dur("elapsed", elapsed).Str("binary", inv.Binary).Msg("Synthesis process finished")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
