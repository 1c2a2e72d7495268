// Package modelcache locates synthesis model artifacts on disk.
package modelcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Paths holds the resolved model artifact locations
type Paths struct {
	Checkpoint string
	Vocab      string
}

// Locator discovers the checkpoint and vocabulary files for the model
type Locator interface {
	Locate() (Paths, error)
}

// NotFoundError is returned when a model artifact cannot be located.
// Path names the specific missing file or directory.
type NotFoundError struct {
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model artifact not found: %s (%s)", e.Path, e.Reason)
}

// CacheLocator scans a HuggingFace hub cache for the most recent model
// snapshot. The hub lays snapshots out as
// {cache-root}/models--{org}--{name}/snapshots/{revision}/.
type CacheLocator struct {
	CacheDir     string
	Repo         string // "org/name" form
	CkptSubpath  string
	VocabSubpath string
}

// NewCacheLocator creates a locator for the given cache root and repo
func NewCacheLocator(cacheDir, repo, ckptSubpath, vocabSubpath string) *CacheLocator {
	return &CacheLocator{
		CacheDir:     cacheDir,
		Repo:         repo,
		CkptSubpath:  ckptSubpath,
		VocabSubpath: vocabSubpath,
	}
}

// Locate scans the snapshot directory, picks the most recently modified
// snapshot (ties broken lexicographically for determinism) and verifies the
// checkpoint and vocabulary files inside it.
func (l *CacheLocator) Locate() (Paths, error) {
	pattern := filepath.Join(l.CacheDir, l.repoDir(), "snapshots", "*")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to scan model cache: %w", err)
	}
	if len(matches) == 0 {
		return Paths{}, &NotFoundError{Path: pattern, Reason: "no snapshot directory in cache"}
	}

	snapshot := newestDir(matches)

	ckpt := filepath.Join(snapshot, l.CkptSubpath)
	if !isFile(ckpt) {
		return Paths{}, &NotFoundError{Path: ckpt, Reason: "checkpoint file missing"}
	}

	vocab := filepath.Join(snapshot, l.VocabSubpath)
	if !isFile(vocab) {
		return Paths{}, &NotFoundError{Path: vocab, Reason: "vocabulary file missing"}
	}

	return Paths{Checkpoint: ckpt, Vocab: vocab}, nil
}

// repoDir converts "org/name" to the hub's "models--org--name" directory name
func (l *CacheLocator) repoDir() string {
	return "models--" + strings.ReplaceAll(l.Repo, "/", "--")
}

// newestDir returns the entry with the latest modification time.
// Entries are pre-sorted lexicographically so equal timestamps resolve
// deterministically.
func newestDir(paths []string) string {
	sort.Strings(paths)

	newest := paths[0]
	var newestMod int64
	if info, err := os.Stat(newest); err == nil {
		newestMod = info.ModTime().UnixNano()
	}

	for _, p := range paths[1:] {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod >= newestMod {
			newest = p
			newestMod = mod
		}
	}

	return newest
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FixedLocator returns a pre-configured checkpoint/vocabulary pair, verifying
// both files exist. Used for deployments that pin exact artifact paths instead
// of scanning a hub cache.
type FixedLocator struct {
	Checkpoint string
	Vocab      string
}

// Locate verifies the configured paths and returns them
func (l *FixedLocator) Locate() (Paths, error) {
	if !isFile(l.Checkpoint) {
		return Paths{}, &NotFoundError{Path: l.Checkpoint, Reason: "checkpoint file missing"}
	}
	if !isFile(l.Vocab) {
		return Paths{}, &NotFoundError{Path: l.Vocab, Reason: "vocabulary file missing"}
	}
	return Paths{Checkpoint: l.Checkpoint, Vocab: l.Vocab}, nil
}
