package tts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestExecutor_Success(t *testing.T) {
	e := &Executor{Timeout: 5 * time.Second, Log: zerolog.Nop()}

	err := e.Run(context.Background(), &Invocation{Binary: "true"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	e := &Executor{Timeout: 5 * time.Second, Log: zerolog.Nop()}

	inv := &Invocation{
		Binary: "sh",
		Args:   []string{"-c", "echo 'model blew up' >&2; exit 3"},
	}

	err := e.Run(context.Background(), inv)
	if err == nil {
		t.Fatal("Expected error for non-zero exit")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Expected SynthesisError, got %T: %v", err, err)
	}
	if synthErr.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", synthErr.ExitCode)
	}
	if !strings.Contains(synthErr.Stderr, "model blew up") {
		t.Errorf("Expected stderr capture, got %q", synthErr.Stderr)
	}
}

func TestExecutor_StderrTruncated(t *testing.T) {
	e := &Executor{Timeout: 5 * time.Second, Log: zerolog.Nop()}

	inv := &Invocation{
		Binary: "sh",
		Args:   []string{"-c", "head -c 5000 /dev/zero | tr '\\0' 'x' >&2; exit 1"},
	}

	err := e.Run(context.Background(), inv)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
	if len(synthErr.Stderr) > maxStderrBytes {
		t.Errorf("Stderr capture must be bounded to %d bytes, got %d", maxStderrBytes, len(synthErr.Stderr))
	}
}

func TestExecutor_Timeout(t *testing.T) {
	e := &Executor{Timeout: 100 * time.Millisecond, Log: zerolog.Nop()}

	inv := &Invocation{Binary: "sleep", Args: []string{"10"}}

	err := e.Run(context.Background(), inv)
	if err == nil {
		t.Fatal("Expected timeout error")
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected TimeoutError, got %T: %v", err, err)
	}
	if timeoutErr.Limit != 100*time.Millisecond {
		t.Errorf("Expected limit 100ms, got %v", timeoutErr.Limit)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 1000); got != "short" {
		t.Errorf("truncate changed a short string: %q", got)
	}
	if got := truncate(strings.Repeat("a", 2000), 1000); len(got) != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", len(got))
	}
}
