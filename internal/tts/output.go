package tts

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vocalio/tts-gateway/internal/audio"
	"github.com/vocalio/tts-gateway/internal/observability"
)

// resolveOutput locates the produced waveform. The expected path wins when it
// exists; otherwise the output directory is scanned for the most recently
// modified .wav (some CLI versions rename their output).
func resolveOutput(expected, dir string) (string, error) {
	if isFile(expected) {
		return expected, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &NoOutputError{Dir: dir, Reason: err.Error()}
	}

	var wavs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".wav") {
			wavs = append(wavs, filepath.Join(dir, entry.Name()))
		}
	}
	if len(wavs) == 0 {
		return "", &NoOutputError{Dir: dir, Reason: "no wav files found"}
	}

	// Lexicographic pre-sort keeps equal timestamps deterministic
	sort.Strings(wavs)

	newest := wavs[0]
	var newestMod int64
	if info, err := os.Stat(newest); err == nil {
		newestMod = info.ModTime().UnixNano()
	}
	for _, p := range wavs[1:] {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod >= newestMod {
			newest = p
			newestMod = mod
		}
	}

	return newest, nil
}

// verifyOutput rejects artifacts that are not decodable WAV containers,
// typically files left behind by a killed or crashed synthesis process.
func verifyOutput(path string) error {
	if _, err := audio.ProbeWAV(path); err != nil {
		return &NoOutputError{Dir: filepath.Dir(path), Reason: err.Error()}
	}
	return nil
}

// Transcoder converts WAV artifacts to MP3 via an external binary
type Transcoder struct {
	Binary string
}

// ToMP3 produces a sibling .mp3 next to the wav file. The transcoder's own
// output is discarded. Failure is explicit — a broken path is never handed
// back to the caller.
func (t *Transcoder) ToMP3(ctx context.Context, wavPath string) (string, error) {
	mp3Path := strings.TrimSuffix(wavPath, ".wav") + ".mp3"

	// #nosec G204 -- binary from deployment config, paths are service-generated
	cmd := exec.CommandContext(ctx, t.Binary, "-y", "-i", wavPath, mp3Path)

	err := cmd.Run()
	observability.RecordTranscode(err == nil && isFile(mp3Path))
	if err != nil {
		return "", &TranscodeError{Path: wavPath, Err: err}
	}

	if !isFile(mp3Path) {
		return "", &TranscodeError{Path: wavPath, Err: os.ErrNotExist}
	}

	return mp3Path, nil
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
