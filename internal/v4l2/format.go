package v4l2

import "fmt"

// PixelFormat describes the layout of a captured image. It is an
// immutable value: the session replaces its current-format mirror
// wholesale on every successful negotiation, so readers always see one
// consistent snapshot.
type PixelFormat struct {
	FourCC       FourCC
	Width        uint32
	Height       uint32
	BytesPerLine uint32
	SizeImage    uint32
}

func (p PixelFormat) String() string {
	return fmt.Sprintf("%s @ %dx%d", p.FourCC, p.Width, p.Height)
}

// pixelFormatFromPix lifts the raw kernel pixel format into the
// portable descriptor.
func pixelFormatFromPix(raw pixFormat) PixelFormat {
	return PixelFormat{
		FourCC:       FourCC(raw.pixelFormat),
		Width:        raw.width,
		Height:       raw.height,
		BytesPerLine: raw.bytesPerLine,
		SizeImage:    raw.sizeImage,
	}
}

// ImageFormat is one entry of the device's supported-format
// enumeration.
type ImageFormat struct {
	Index       uint32
	FourCC      FourCC
	Description string
	Compressed  bool
	Emulated    bool
}

// FrameSize is a discrete frame size supported for a pixel format.
type FrameSize struct {
	Width  uint32
	Height uint32
}
