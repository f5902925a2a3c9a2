package events

import (
	"time"

	"github.com/camnode/camnode/internal/v4l2"
)

// Event type constants for kelindar/event.
const (
	TypeFrame uint32 = iota + 1
	TypeCaptureError
	TypeStreamState
	TypeFormatChanged
	TypeControlChanged
	TypeDeviceDiscovery
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameEvent carries one captured frame to in-process consumers. Data
// is shared, not copied; subscribers must not mutate it.
type FrameEvent struct {
	Camera    string
	Data      []byte
	Width     uint32
	Height    uint32
	Stride    uint32
	FourCC    v4l2.FourCC
	Sequence  uint64
	Timestamp time.Time
}

// Type returns the event type identifier for FrameEvent.
func (e FrameEvent) Type() uint32 { return TypeFrame }

// CaptureErrorEvent reports a failed frame capture.
type CaptureErrorEvent struct {
	Camera    string    `json:"camera" example:"hd_pro_webcam_c920" doc:"Camera identifier"`
	Error     string    `json:"error" example:"dequeuing buffer: input/output error" doc:"Failure description"`
	Timestamp time.Time `json:"timestamp" doc:"When the failure happened"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// StreamStateEvent reports the stream turning on or off.
type StreamStateEvent struct {
	Camera    string    `json:"camera" example:"hd_pro_webcam_c920" doc:"Camera identifier"`
	Streaming bool      `json:"streaming" example:"true" doc:"Whether the stream is on"`
	Timestamp time.Time `json:"timestamp" doc:"When the state changed"`
}

// Type returns the event type identifier for StreamStateEvent.
func (e StreamStateEvent) Type() uint32 { return TypeStreamState }

// FormatChangedEvent reports a successful format negotiation.
type FormatChangedEvent struct {
	Camera    string    `json:"camera" example:"hd_pro_webcam_c920" doc:"Camera identifier"`
	Format    string    `json:"format" example:"YUYV @ 1280x720" doc:"Negotiated format"`
	Width     uint32    `json:"width" example:"1280" doc:"Frame width in pixels"`
	Height    uint32    `json:"height" example:"720" doc:"Frame height in pixels"`
	Timestamp time.Time `json:"timestamp" doc:"When the format changed"`
}

// Type returns the event type identifier for FormatChangedEvent.
func (e FormatChangedEvent) Type() uint32 { return TypeFormatChanged }

// ControlChangedEvent reports an applied control write.
type ControlChangedEvent struct {
	Camera    string    `json:"camera" example:"hd_pro_webcam_c920" doc:"Camera identifier"`
	Control   string    `json:"control" example:"brightness" doc:"Normalized control name"`
	Value     int64     `json:"value" example:"12" doc:"Applied value"`
	Timestamp time.Time `json:"timestamp" doc:"When the control changed"`
}

// Type returns the event type identifier for ControlChangedEvent.
func (e ControlChangedEvent) Type() uint32 { return TypeControlChanged }

// DeviceDiscoveryEvent reports a capture node appearing or vanishing.
type DeviceDiscoveryEvent struct {
	Path      string    `json:"path" example:"/dev/video0" doc:"Device node path"`
	Card      string    `json:"card" example:"HD Pro Webcam C920" doc:"Reported card name"`
	Action    string    `json:"action" example:"added" doc:"added or removed"`
	Timestamp time.Time `json:"timestamp" doc:"When the change was seen"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }
