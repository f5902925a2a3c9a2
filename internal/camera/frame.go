package camera

import (
	"time"

	"github.com/camnode/camnode/internal/v4l2"
)

// Frame is one captured image. Data is owned by the receiver; the
// capture loop never reuses a published buffer.
type Frame struct {
	Data      []byte
	Width     uint32
	Height    uint32
	Stride    uint32
	FourCC    v4l2.FourCC
	Timestamp time.Time
	Sequence  uint64
}

// Sink receives published frames. A Sink returning an error drops the
// frame but never stops the loop.
type Sink interface {
	Publish(Frame) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Frame) error

func (f SinkFunc) Publish(fr Frame) error { return f(fr) }

// Stats receives per-frame accounting. Implementations must be safe
// for concurrent use.
type Stats interface {
	FrameCaptured(d time.Duration, bytes int)
	FrameDropped()
	CaptureError(err error)
}

type nopStats struct{}

func (nopStats) FrameCaptured(time.Duration, int) {}
func (nopStats) FrameDropped()                    {}
func (nopStats) CaptureError(error)               {}
