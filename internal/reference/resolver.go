// Package reference materializes reference-audio and reference-text locators
// into values the synthesis CLI can consume.
package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vocalio/tts-gateway/internal/observability"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// FetchError is returned when a remote reference cannot be downloaded or a
// configured override file cannot be read.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch reference %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Resolver resolves per-request reference locators, honoring process-wide
// overrides from deployment configuration.
type Resolver struct {
	client     *http.Client
	stagingDir string

	// Overrides. When they resolve to an existing file they win over whatever
	// the request supplied.
	envAudioPath string
	envTextPath  string

	log zerolog.Logger
}

// NewResolver creates a resolver that downloads remote references into
// stagingDir with the given per-fetch timeout.
func NewResolver(stagingDir string, fetchTimeout time.Duration, envAudioPath, envTextPath string, log zerolog.Logger) *Resolver {
	return &Resolver{
		client:       &http.Client{Timeout: fetchTimeout},
		stagingDir:   stagingDir,
		envAudioPath: envAudioPath,
		envTextPath:  envTextPath,
		log:          log,
	}
}

// ResolveAudio resolves a reference-audio locator to a local file path.
// Returns "" when no reference is in play. Remote locators are downloaded into
// the staging directory; plain local paths pass through unchanged (existence
// is checked by the CLI, not here).
func (r *Resolver) ResolveAudio(ctx context.Context, locator string) (string, error) {
	if r.envAudioPath != "" && isFile(r.envAudioPath) {
		return r.envAudioPath, nil
	}

	if locator == "" {
		return "", nil
	}

	if !isRemote(locator) {
		return locator, nil
	}

	local, err := r.download(ctx, locator, "ref_", ".wav")
	observability.RecordReferenceFetch("audio", err == nil)
	if err != nil {
		return "", err
	}

	r.log.Debug().Str("url", locator).Str("path", local).Msg("Downloaded reference audio")
	return local, nil
}

// ResolveText resolves a reference-text locator to sanitized plain text.
// Returns "" when no reference text is in play.
//
// The override path is read from disk, but a per-request locator that merely
// looks like a local path is treated as literal text. The two behave
// differently on purpose; see the deployment docs before unifying them.
func (r *Resolver) ResolveText(ctx context.Context, locator string) (string, error) {
	if r.envTextPath != "" && isFile(r.envTextPath) {
		data, err := os.ReadFile(r.envTextPath)
		if err != nil {
			return "", &FetchError{Locator: r.envTextPath, Err: err}
		}
		return string(data), nil
	}

	if locator == "" {
		return "", nil
	}

	if !isRemote(locator) {
		return sanitizeText(locator), nil
	}

	local, err := r.download(ctx, locator, "ref_text_", ".txt")
	observability.RecordReferenceFetch("text", err == nil)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(local)
	if err != nil {
		return "", &FetchError{Locator: locator, Err: err}
	}

	r.log.Debug().Str("url", locator).Int("bytes", len(data)).Msg("Downloaded reference text")
	return sanitizeText(string(data)), nil
}

// download fetches a remote resource and persists it under the staging
// directory with a unique name, preserving the URL's extension when present.
func (r *Resolver) download(ctx context.Context, rawURL, prefix, defaultExt string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{Locator: rawURL, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &FetchError{Locator: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Locator: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(r.stagingDir, 0o755); err != nil {
		return "", &FetchError{Locator: rawURL, Err: err}
	}

	name := prefix + uuid.New().String() + extensionOf(rawURL, defaultExt)
	local := filepath.Join(r.stagingDir, name)

	f, err := os.Create(local)
	if err != nil {
		return "", &FetchError{Locator: rawURL, Err: err}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(local)
		return "", &FetchError{Locator: rawURL, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &FetchError{Locator: rawURL, Err: err}
	}

	return local, nil
}

// sanitizeText strips HTML-like tags and NUL bytes and trims whitespace
func sanitizeText(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}

// isRemote reports whether the locator is an http(s) URL
func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// extensionOf returns the URL path's extension, or the default when absent
func extensionOf(rawURL, defaultExt string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}
	return defaultExt
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
