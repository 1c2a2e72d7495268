// Package accent rewrites input text with stress marks so the synthesis model
// pronounces Russian words correctly. The annotation model is expensive to
// load, so it lives in a helper process started once at service startup and
// spoken to over a JSON-lines pipe.
package accent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// ErrAnnotatorClosed is returned when the helper process has exited
var ErrAnnotatorClosed = errors.New("accent: annotator process has exited")

// Scanner buffer cap; annotated paragraphs can be long
const maxLineBytes = 4 * 1024 * 1024

// Options configures the annotation helper process
type Options struct {
	Binary        string // helper executable on PATH
	ModelSize     string // e.g. "turbo3.1"
	UseDictionary bool
	TinyMode      bool
}

type request struct {
	Text string `json:"text"`
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Annotator talks to the long-lived helper process. Calls are serialized:
// the helper handles one text at a time over its stdio pipe.
type Annotator struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	done    chan struct{}
	waitErr error

	log zerolog.Logger
}

// Start launches the helper process and waits for it to be usable. The model
// is loaded inside the helper during startup, so a missing binary or a broken
// model surfaces here, not on the first request.
func Start(opts Options, log zerolog.Logger) (*Annotator, error) {
	args := []string{
		"--omograph-model-size", opts.ModelSize,
		"--use-dictionary", strconv.FormatBool(opts.UseDictionary),
		"--tiny-mode", strconv.FormatBool(opts.TinyMode),
	}

	cmd := exec.Command(opts.Binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("accent: failed to open stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("accent: failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("accent: failed to start %s: %w", opts.Binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	a := &Annotator{
		cmd:     cmd,
		stdin:   stdin,
		scanner: scanner,
		done:    make(chan struct{}),
		log:     log,
	}

	go func() {
		a.waitErr = cmd.Wait()
		close(a.done)
		if a.waitErr != nil {
			log.Error().Err(a.waitErr).Msg("Accent annotator process exited")
		}
	}()

	log.Info().
		Str("binary", opts.Binary).
		Str("model_size", opts.ModelSize).
		Bool("use_dictionary", opts.UseDictionary).
		Bool("tiny_mode", opts.TinyMode).
		Msg("Accent annotator started")

	return a, nil
}

// Process sends text to the helper and returns the annotated form.
// A single trailing space is appended; the downstream CLI's tokenizer drops
// the final token without it.
func (a *Annotator) Process(ctx context.Context, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.alive() {
		return "", ErrAnnotatorClosed
	}

	payload, err := json.Marshal(request{Text: text})
	if err != nil {
		return "", fmt.Errorf("accent: failed to encode request: %w", err)
	}
	payload = append(payload, '\n')

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := a.stdin.Write(payload); err != nil {
		return "", fmt.Errorf("accent: failed to write to annotator: %w", err)
	}

	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return "", fmt.Errorf("accent: failed to read from annotator: %w", err)
		}
		return "", ErrAnnotatorClosed
	}

	var resp response
	if err := json.Unmarshal(a.scanner.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("accent: malformed annotator response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("accent: annotation failed: %s", resp.Error)
	}

	return resp.Text + " ", nil
}

// Alive reports whether the helper process is still running
func (a *Annotator) Alive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alive()
}

func (a *Annotator) alive() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Close shuts the helper down by closing its stdin and waiting for exit
func (a *Annotator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.stdin.Close(); err != nil && a.alive() {
		return fmt.Errorf("accent: failed to close annotator stdin: %w", err)
	}

	<-a.done
	return nil
}
