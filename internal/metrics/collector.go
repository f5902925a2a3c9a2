// Package metrics exposes capture pipeline counters in Prometheus
// format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates per-frame accounting for one camera. It
// implements the capture loop's stats hook.
type Collector struct {
	registry *prometheus.Registry

	framesCaptured prometheus.Counter
	framesDropped  prometheus.Counter
	captureErrors  prometheus.Counter
	captureSeconds prometheus.Histogram
	frameBytes     prometheus.Gauge
	streaming      prometheus.Gauge
	controlWrites  prometheus.Counter
}

// NewCollector registers the capture metrics on a fresh registry,
// labeled with the camera identifier.
func NewCollector(cameraName string) *Collector {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"camera": cameraName}

	c := &Collector{
		registry: registry,
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "camnode_frames_captured_total",
			Help:        "Frames successfully captured from the device.",
			ConstLabels: labels,
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "camnode_frames_dropped_total",
			Help:        "Frames captured but not delivered to a consumer.",
			ConstLabels: labels,
		}),
		captureErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "camnode_capture_errors_total",
			Help:        "Frame captures that failed.",
			ConstLabels: labels,
		}),
		captureSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "camnode_frame_capture_seconds",
			Help:        "Wall time spent waiting for a frame.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		frameBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "camnode_frame_bytes",
			Help:        "Size of the most recent frame in bytes.",
			ConstLabels: labels,
		}),
		streaming: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "camnode_streaming",
			Help:        "Whether the capture stream is on.",
			ConstLabels: labels,
		}),
		controlWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "camnode_control_writes_total",
			Help:        "Control values applied to the device.",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		c.framesCaptured,
		c.framesDropped,
		c.captureErrors,
		c.captureSeconds,
		c.frameBytes,
		c.streaming,
		c.controlWrites,
	)
	return c
}

// FrameCaptured records one successful capture.
func (c *Collector) FrameCaptured(d time.Duration, bytes int) {
	c.framesCaptured.Inc()
	c.captureSeconds.Observe(d.Seconds())
	c.frameBytes.Set(float64(bytes))
}

// FrameDropped records a frame lost between capture and delivery.
func (c *Collector) FrameDropped() {
	c.framesDropped.Inc()
}

// CaptureError records a failed capture attempt. The error itself only
// matters to subscribers, the counter just increments.
func (c *Collector) CaptureError(error) {
	c.captureErrors.Inc()
}

// StreamState records the stream turning on or off.
func (c *Collector) StreamState(on bool) {
	if on {
		c.streaming.Set(1)
	} else {
		c.streaming.Set(0)
	}
}

// ControlWritten records an applied control change.
func (c *Collector) ControlWritten() {
	c.controlWrites.Inc()
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
