package models

import (
	"time"

	"github.com/camnode/camnode/internal/devices"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.3" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:00:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version used to build"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// PixelFormatData mirrors the negotiated capture format.
type PixelFormatData struct {
	PixelFormat  string `json:"pixel_format" example:"YUYV" doc:"Four-character pixel format code"`
	Width        uint32 `json:"width" example:"1280" doc:"Frame width in pixels"`
	Height       uint32 `json:"height" example:"720" doc:"Frame height in pixels"`
	BytesPerLine uint32 `json:"bytes_per_line" example:"2560" doc:"Row stride in bytes"`
	SizeImage    uint32 `json:"size_image" example:"1843200" doc:"Frame size in bytes"`
}

// CameraData describes the managed capture device and its session.
type CameraData struct {
	Path      string          `json:"path" example:"/dev/video0" doc:"Device node path"`
	Name      string          `json:"name" example:"hd_pro_webcam_c920" doc:"Stable camera identifier"`
	Card      string          `json:"card" example:"HD Pro Webcam C920" doc:"Reported card name"`
	Driver    string          `json:"driver" example:"uvcvideo" doc:"Kernel driver name"`
	BusInfo   string          `json:"bus_info" example:"usb-0000:00:14.0-3" doc:"Bus location"`
	Version   string          `json:"version" example:"6.1.0" doc:"Driver version"`
	Streaming bool            `json:"streaming" example:"true" doc:"Whether the capture loop is active"`
	Format    PixelFormatData `json:"format" doc:"Currently negotiated capture format"`
}

type CameraResponse struct {
	Body CameraData
}

// ImageFormatData is one entry of the device's format enumeration.
type ImageFormatData struct {
	PixelFormat string          `json:"pixel_format" example:"YUYV" doc:"Four-character pixel format code"`
	Description string          `json:"description" example:"YUYV 4:2:2" doc:"Driver-reported description"`
	Compressed  bool            `json:"compressed" example:"false" doc:"Whether the format is compressed"`
	Emulated    bool            `json:"emulated" example:"false" doc:"Whether the format is converted in software"`
	FrameSizes  []FrameSizeData `json:"frame_sizes,omitempty" doc:"Discrete frame sizes, if the driver reports them"`
}

type FrameSizeData struct {
	Width  uint32 `json:"width" example:"1280" doc:"Frame width in pixels"`
	Height uint32 `json:"height" example:"720" doc:"Frame height in pixels"`
}

type FormatsData struct {
	Formats []ImageFormatData `json:"formats" doc:"Supported image formats"`
	Count   int               `json:"count" example:"3" doc:"Number of formats"`
}

type FormatsResponse struct {
	Body FormatsData
}

// SetFormatBody is the requested capture format. The driver may
// substitute the closest supported layout; the response carries the
// format actually in effect.
type SetFormatBody struct {
	PixelFormat string `json:"pixel_format" example:"YUYV" minLength:"4" maxLength:"4" doc:"Four-character pixel format code"`
	Width       uint32 `json:"width" example:"1280" minimum:"1" doc:"Frame width in pixels"`
	Height      uint32 `json:"height" example:"720" minimum:"1" doc:"Frame height in pixels"`
}

type SetFormatResponse struct {
	Body PixelFormatData
}

// ControlData is one device control with its current value.
type ControlData struct {
	Name    string         `json:"name" example:"brightness" doc:"Normalized control name"`
	Type    string         `json:"type" example:"int" doc:"Control type: int, bool or menu"`
	Min     int64          `json:"min" example:"-64" doc:"Minimum value"`
	Max     int64          `json:"max" example:"64" doc:"Maximum value"`
	Default int64          `json:"default" example:"0" doc:"Default value"`
	Value   int64          `json:"value" example:"12" doc:"Current value"`
	Menu    []MenuItemData `json:"menu,omitempty" doc:"Legal values for menu controls"`
}

type MenuItemData struct {
	Index int64  `json:"index" example:"1" doc:"Menu item index"`
	Name  string `json:"name" example:"50 Hz" doc:"Menu item label"`
}

type ControlsData struct {
	Controls []ControlData `json:"controls" doc:"Device controls"`
	Count    int           `json:"count" example:"12" doc:"Number of controls"`
}

type ControlsResponse struct {
	Body ControlsData
}

type ControlResponse struct {
	Body ControlData
}

// SetControlBody carries a control value to apply.
type SetControlBody struct {
	Value int64 `json:"value" example:"12" doc:"Value to apply"`
}

// StreamStateBody toggles the capture loop.
type StreamStateBody struct {
	Streaming bool `json:"streaming" example:"true" doc:"Whether the capture loop should run"`
}

type StreamStateData struct {
	Streaming bool      `json:"streaming" example:"true" doc:"Whether the capture loop is active"`
	ChangedAt time.Time `json:"changed_at" doc:"When the state last changed"`
}

type StreamStateResponse struct {
	Body StreamStateData
}

// DevicesData lists capture-capable nodes on the machine.
type DevicesData struct {
	Devices []devices.Info `json:"devices" doc:"Capture-capable device nodes"`
	Count   int            `json:"count" example:"2" doc:"Number of devices found"`
}

type DevicesResponse struct {
	Body DevicesData
}
