package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	BufferedSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestaudio_buffered_samples",
		Help: "Samples currently held in the output ring",
	})
	FramesQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestaudio_frames_queued",
		Help: "Emulated frames of audio buffered at the last ingest",
	})
	ResampleRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestaudio_resample_ratio",
		Help: "Conversion ratio applied at the last ingest",
	})
	Muted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestaudio_muted",
		Help: "1 while the engine discards produced audio",
	})
)

// Counters
var (
	UnderrunSamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestaudio_underrun_samples_total",
		Help: "Silent samples handed to the device because the ring was empty",
	})
	ClippedSamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestaudio_clipped_samples_total",
		Help: "Converted samples that saturated at the 16-bit limits",
	})
	BackpressureWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestaudio_backpressure_waits_total",
		Help: "Ingest calls that blocked waiting for ring space",
	})
	IngestBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nestaudio_ingest_blocks_total",
		Help: "Audio blocks handed to the engine by outcome",
	}, []string{"outcome"})
	RehashTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nestaudio_rehash_total",
		Help: "Converter rebuilds by outcome",
	}, []string{"outcome"})
	DeviceOpenFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestaudio_device_open_failures_total",
		Help: "Output device opens that failed and fell back to the null device",
	})
	CaptureBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestaudio_capture_blocks_total",
		Help: "Microphone blocks forwarded to the core",
	})
)

// Histograms
var (
	BackpressureWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nestaudio_backpressure_wait_seconds",
		Help:    "Time an ingest call spent waiting for ring space",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
)
