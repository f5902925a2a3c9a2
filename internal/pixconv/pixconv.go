// Package pixconv converts packed pixel buffers between the encodings
// capture hardware commonly delivers and the RGB layout consumers want.
package pixconv

import (
	"fmt"

	"github.com/camnode/camnode/internal/v4l2"
)

// Convert rewrites src, holding a width x height image with the given
// row stride in the from encoding, into a new buffer in the to
// encoding. Converting to the source encoding returns src unchanged.
func Convert(src []byte, from, to v4l2.FourCC, width, height, stride int) ([]byte, error) {
	if from == to {
		return src, nil
	}
	switch {
	case from == v4l2.PixFmtYUYV && to == v4l2.PixFmtRGB24:
		return yuyvToRGB24(src, width, height, stride)
	case from == v4l2.PixFmtUYVY && to == v4l2.PixFmtRGB24:
		return uyvyToRGB24(src, width, height, stride)
	case from == v4l2.PixFmtGrey && to == v4l2.PixFmtRGB24:
		return greyToRGB24(src, width, height, stride)
	default:
		return nil, fmt.Errorf("no conversion from %s to %s", from, to)
	}
}

// yuyvToRGB24 expands packed 4:2:2 YUYV into RGB using BT.601 studio
// swing coefficients in fixed point. Each 4-byte group carries two
// pixels sharing one chroma sample.
func yuyvToRGB24(src []byte, width, height, stride int) ([]byte, error) {
	if err := checkBounds(src, width, height, stride, 2); err != nil {
		return nil, err
	}
	dst := make([]byte, width*height*3)
	di := 0
	for row := 0; row < height; row++ {
		line := src[row*stride:]
		x := 0
		for ; x+1 < width; x += 2 {
			y0 := int(line[x*2])
			u := int(line[x*2+1])
			y1 := int(line[x*2+2])
			v := int(line[x*2+3])
			di = putYUV(dst, di, y0, u, v)
			di = putYUV(dst, di, y1, u, v)
		}
		if x < width {
			// An odd width leaves a lone luma sample carrying only the
			// U half of its chroma pair. Substitute neutral V.
			di = putYUV(dst, di, int(line[x*2]), int(line[x*2+1]), 128)
		}
	}
	return dst, nil
}

func uyvyToRGB24(src []byte, width, height, stride int) ([]byte, error) {
	if err := checkBounds(src, width, height, stride, 2); err != nil {
		return nil, err
	}
	dst := make([]byte, width*height*3)
	di := 0
	for row := 0; row < height; row++ {
		line := src[row*stride:]
		x := 0
		for ; x+1 < width; x += 2 {
			u := int(line[x*2])
			y0 := int(line[x*2+1])
			v := int(line[x*2+2])
			y1 := int(line[x*2+3])
			di = putYUV(dst, di, y0, u, v)
			di = putYUV(dst, di, y1, u, v)
		}
		if x < width {
			di = putYUV(dst, di, int(line[x*2+1]), int(line[x*2]), 128)
		}
	}
	return dst, nil
}

func greyToRGB24(src []byte, width, height, stride int) ([]byte, error) {
	if err := checkBounds(src, width, height, stride, 1); err != nil {
		return nil, err
	}
	dst := make([]byte, width*height*3)
	di := 0
	for row := 0; row < height; row++ {
		line := src[row*stride:]
		for x := 0; x < width; x++ {
			dst[di] = line[x]
			dst[di+1] = line[x]
			dst[di+2] = line[x]
			di += 3
		}
	}
	return dst, nil
}

// putYUV writes one BT.601 pixel and returns the advanced offset.
func putYUV(dst []byte, di, y, u, v int) int {
	c := y - 16
	d := u - 128
	e := v - 128
	dst[di] = clamp((298*c + 409*e + 128) >> 8)
	dst[di+1] = clamp((298*c - 100*d - 208*e + 128) >> 8)
	dst[di+2] = clamp((298*c + 516*d + 128) >> 8)
	return di + 3
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func checkBounds(src []byte, width, height, stride, bpp int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if stride < width*bpp {
		return fmt.Errorf("stride %d too small for width %d at %d bytes per pixel", stride, width, bpp)
	}
	if need := (height-1)*stride + width*bpp; len(src) < need {
		return fmt.Errorf("buffer holds %d bytes, image needs %d", len(src), need)
	}
	return nil
}
