package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Synthesis metrics
	activeSyntheses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tts_gateway_active_syntheses",
		Help: "Number of synthesis subprocesses currently running",
	})

	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_gateway_synthesis_requests_total",
		Help: "Total number of synthesis requests",
	}, []string{"status"})

	synthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tts_gateway_synthesis_duration_seconds",
		Help:    "End-to-end synthesis duration in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Reference fetch metrics
	referenceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_gateway_reference_fetches_total",
		Help: "Total number of remote reference downloads",
	}, []string{"kind", "status"})

	// Transcode metrics
	transcodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_gateway_transcodes_total",
		Help: "Total number of WAV to MP3 transcodes",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Audio output metrics
	audioBytesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_gateway_audio_bytes_total",
		Help: "Total audio bytes served",
	}, []string{"format"})
)

// RecordSynthesisStart marks a synthesis subprocess as running
func RecordSynthesisStart() {
	activeSyntheses.Inc()
}

// RecordSynthesisEnd records the outcome and duration of a synthesis request
func RecordSynthesisEnd(start time.Time, success bool) {
	activeSyntheses.Dec()
	synthesisDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
}

// RecordReferenceFetch records a remote reference download outcome.
// kind is "audio" or "text".
func RecordReferenceFetch(kind string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	referenceFetches.WithLabelValues(kind, status).Inc()
}

// RecordTranscode records a WAV to MP3 transcode outcome
func RecordTranscode(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	transcodes.WithLabelValues(status).Inc()
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes served to a client
func RecordAudioBytes(format string, bytes int64) {
	audioBytesServed.WithLabelValues(format).Add(float64(bytes))
}
