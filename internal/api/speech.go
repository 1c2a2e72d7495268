// Package api exposes the synthesis pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vocalio/tts-gateway/internal/modelcache"
	"github.com/vocalio/tts-gateway/internal/observability"
	"github.com/vocalio/tts-gateway/internal/reference"
	"github.com/vocalio/tts-gateway/internal/tts"
)

// Request bodies are JSON text, not audio; 1 MiB is generous
const maxRequestBytes = 1 << 20

// Synthesizer is the pipeline surface the handler needs
type Synthesizer interface {
	Synthesize(ctx context.Context, req *tts.SpeechRequest) (*tts.Artifact, error)
}

// errorResponse is the JSON error body
type errorResponse struct {
	Detail string `json:"detail"`
}

// HandleSpeech handles POST /v1/audio/speech: decode the request, run the
// pipeline, serve the audio file.
func HandleSpeech(synth Synthesizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		log := observability.WithRequestID("")

		var req tts.SpeechRequest
		body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		start := time.Now()
		artifact, err := synth.Synthesize(r.Context(), &req)
		if err != nil {
			status, detail := classifyError(err)
			log.Error().
				Err(err).
				Int("status", status).
				Dur("elapsed", time.Since(start)).
				Msg("Speech request failed")
			writeError(w, status, detail)
			return
		}

		log.Info().
			Str("artifact", artifact.Filename).
			Str("media_type", artifact.MediaType).
			Dur("elapsed", time.Since(start)).
			Msg("Speech request served")

		w.Header().Set("Content-Type", artifact.MediaType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		http.ServeFile(w, r, artifact.Path)
	}
}

// classifyError maps pipeline errors onto HTTP statuses:
// validation and fetch failures are the caller's fault, missing model
// artifacts and broken synthesis are ours, a timeout is the gateway's.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, tts.ErrEmptyInput):
		return http.StatusBadRequest, "input text required"
	case errors.Is(err, tts.ErrUnsupportedFormat):
		return http.StatusBadRequest, "out_format must be wav or mp3"
	}

	var fetchErr *reference.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadRequest, fetchErr.Error()
	}

	var timeoutErr *tts.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, "TTS generation timed out"
	}

	var notFound *modelcache.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusInternalServerError, notFound.Error()
	}

	var synthErr *tts.SynthesisError
	if errors.As(err, &synthErr) {
		return http.StatusInternalServerError, fmt.Sprintf("synthesis failed: %s", synthErr.Stderr)
	}

	var noOutput *tts.NoOutputError
	if errors.As(err, &noOutput) {
		return http.StatusInternalServerError, "no output produced"
	}

	var transcodeErr *tts.TranscodeError
	if errors.As(err, &transcodeErr) {
		return http.StatusInternalServerError, "transcode failed"
	}

	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Detail: detail})
}
