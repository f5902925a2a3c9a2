package events

import (
	"time"

	"github.com/camnode/camnode/internal/camera"
)

// FrameSink publishes captured frames onto the bus as FrameEvents.
type FrameSink struct {
	bus    *Bus
	camera string
}

// NewFrameSink names frames after the camera they came from.
func NewFrameSink(bus *Bus, cameraName string) *FrameSink {
	return &FrameSink{bus: bus, camera: cameraName}
}

// Publish implements camera.Sink.
func (s *FrameSink) Publish(fr camera.Frame) error {
	s.bus.Publish(FrameEvent{
		Camera:    s.camera,
		Data:      fr.Data,
		Width:     fr.Width,
		Height:    fr.Height,
		Stride:    fr.Stride,
		FourCC:    fr.FourCC,
		Sequence:  fr.Sequence,
		Timestamp: fr.Timestamp,
	})
	return nil
}

// StatsSink forwards per-frame accounting to an inner camera.Stats and
// additionally publishes capture failures onto the bus so subscribers
// see them as they happen.
type StatsSink struct {
	bus    *Bus
	camera string
	inner  camera.Stats
}

// NewStatsSink wraps inner, publishing CaptureErrorEvents for cameraName.
func NewStatsSink(bus *Bus, cameraName string, inner camera.Stats) *StatsSink {
	return &StatsSink{bus: bus, camera: cameraName, inner: inner}
}

// FrameCaptured implements camera.Stats.
func (s *StatsSink) FrameCaptured(d time.Duration, bytes int) {
	s.inner.FrameCaptured(d, bytes)
}

// FrameDropped implements camera.Stats.
func (s *StatsSink) FrameDropped() {
	s.inner.FrameDropped()
}

// CaptureError counts the failure and announces it on the bus.
func (s *StatsSink) CaptureError(err error) {
	s.inner.CaptureError(err)
	s.bus.Publish(CaptureErrorEvent{
		Camera:    s.camera,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}
