// Package observe provides application-wide observability primitives for
// hearken: OpenTelemetry metrics and the HTTP surface that exposes them.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hearken metrics.
const meterName = "github.com/MrWong99/hearken"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis plus playback latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// FramesCaptured counts audio frames received from the capture device.
	FramesCaptured metric.Int64Counter

	// ChunksAssembled counts transcription chunks handed to the engine. Use
	// with attribute:
	//   attribute.String("kind", "full"|"partial")
	ChunksAssembled metric.Int64Counter

	// EmptyTranscripts counts chunks the engine returned no text for.
	EmptyTranscripts metric.Int64Counter

	// Triggers counts accepted trigger-phrase activations.
	Triggers metric.Int64Counter

	// TriggersSuppressed counts detections rejected by the cool-down guard.
	TriggersSuppressed metric.Int64Counter

	// --- Error counters ---

	// EngineErrors counts STT/TTS engine failures. Use with attribute:
	//   attribute.String("engine", "stt"|"tts")
	EngineErrors metric.Int64Counter

	// DeviceAnomalies counts capture status flags reported by the audio
	// device (overflows and the like).
	DeviceAnomalies metric.Int64Counter

	// --- Gauges ---

	// QueueDepth is an observable gauge reporting the number of frames
	// waiting in the capture queue. Register a reader with
	// [Metrics.RegisterQueueDepth].
	QueueDepth metric.Int64ObservableGauge

	meter metric.Meter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("hearken.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("hearken.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesCaptured, err = m.Int64Counter("hearken.audio.frames",
		metric.WithDescription("Total audio frames received from the capture device."),
	); err != nil {
		return nil, err
	}
	if met.ChunksAssembled, err = m.Int64Counter("hearken.audio.chunks",
		metric.WithDescription("Total transcription chunks assembled, by kind (full or partial)."),
	); err != nil {
		return nil, err
	}
	if met.EmptyTranscripts, err = m.Int64Counter("hearken.stt.empty_transcripts",
		metric.WithDescription("Total chunks for which transcription returned no text."),
	); err != nil {
		return nil, err
	}
	if met.Triggers, err = m.Int64Counter("hearken.trigger.activations",
		metric.WithDescription("Total accepted trigger-phrase activations."),
	); err != nil {
		return nil, err
	}
	if met.TriggersSuppressed, err = m.Int64Counter("hearken.trigger.suppressed",
		metric.WithDescription("Total detections suppressed by the cool-down guard."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.EngineErrors, err = m.Int64Counter("hearken.engine.errors",
		metric.WithDescription("Total STT/TTS engine failures by engine."),
	); err != nil {
		return nil, err
	}
	if met.DeviceAnomalies, err = m.Int64Counter("hearken.audio.device_anomalies",
		metric.WithDescription("Total capture status anomalies reported by the audio device."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.QueueDepth, err = m.Int64ObservableGauge("hearken.audio.queue_depth",
		metric.WithDescription("Frames currently waiting in the capture queue."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RegisterQueueDepth wires the queue-depth gauge to read its value from fn at
// collection time. The returned registration should be unregistered on
// shutdown.
func (m *Metrics) RegisterQueueDepth(fn func() int) (metric.Registration, error) {
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.QueueDepth, int64(fn()))
		return nil
	}, m.QueueDepth)
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordChunk records a chunk counter increment, tagged full or partial.
func (m *Metrics) RecordChunk(ctx context.Context, partial bool) {
	kind := "full"
	if partial {
		kind = "partial"
	}
	m.ChunksAssembled.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordEngineError records an engine error counter increment for the given
// engine kind ("stt" or "tts").
func (m *Metrics) RecordEngineError(ctx context.Context, engine string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
}
