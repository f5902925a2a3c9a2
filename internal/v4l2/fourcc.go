package v4l2

import "fmt"

// FourCC identifies a pixel encoding as a four-character code packed
// little-endian into 32 bits, the way the kernel encodes it.
type FourCC uint32

// Codes the node knows by name. Any other code a driver reports is
// still carried through untouched.
const (
	PixFmtYUYV  FourCC = 0x56595559 // 'YUYV' packed 4:2:2
	PixFmtUYVY  FourCC = 0x59565955 // 'UYVY' packed 4:2:2
	PixFmtRGB24 FourCC = 0x33424752 // 'RGB3' packed 8:8:8
	PixFmtBGR24 FourCC = 0x33524742 // 'BGR3' packed 8:8:8
	PixFmtGrey  FourCC = 0x59455247 // 'GREY' 8-bit luma
	PixFmtNV12  FourCC = 0x3231564e // 'NV12' planar 4:2:0
	PixFmtMJPEG FourCC = 0x47504a4d // 'MJPG' compressed
)

// ParseFourCC converts a four-character string such as "YUYV" into its
// packed code.
func ParseFourCC(s string) (FourCC, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("pixel format %q: must be a 4 character code", s)
	}
	return FourCC(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24), nil
}

func (f FourCC) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	return string(b[:])
}

// BytesPerPixel reports the packed per-pixel byte count for the formats
// with a fixed pixel stride, and 0 for compressed or planar codes where
// a per-pixel figure is meaningless.
func (f FourCC) BytesPerPixel() uint32 {
	switch f {
	case PixFmtGrey:
		return 1
	case PixFmtYUYV, PixFmtUYVY:
		return 2
	case PixFmtRGB24, PixFmtBGR24:
		return 3
	default:
		return 0
	}
}
