package api

import (
	"image"
	"image/png"
	"net/http"
	"sync"

	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/v4l2"
)

// FrameCache keeps the most recent captured frame and serves it as a
// PNG snapshot. It subscribes to the event bus so the capture loop
// never blocks on HTTP clients.
type FrameCache struct {
	mu     sync.RWMutex
	latest events.FrameEvent
	ok     bool
	unsub  func()
}

// NewFrameCache subscribes to frame events on the bus.
func NewFrameCache(bus *events.Bus) *FrameCache {
	c := &FrameCache{}
	c.unsub = bus.Subscribe(func(e events.FrameEvent) {
		c.mu.Lock()
		c.latest = e
		c.ok = true
		c.mu.Unlock()
	})
	return c
}

// Close detaches the cache from the bus.
func (c *FrameCache) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// Latest returns the most recent frame, if any has arrived yet.
func (c *FrameCache) Latest() (events.FrameEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.ok
}

// ServeHTTP encodes the latest frame as PNG. Only uncompressed RGB24
// and GREY frames can be encoded; configure the camera output format
// accordingly when snapshots are wanted.
func (c *FrameCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame, ok := c.Latest()
	if !ok {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}

	img, err := frameImage(frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		// Headers are already out; nothing left to do but drop the
		// connection.
		return
	}
}

func frameImage(f events.FrameEvent) (image.Image, error) {
	w, h, stride := int(f.Width), int(f.Height), int(f.Stride)
	switch f.FourCC {
	case v4l2.PixFmtRGB24:
		if len(f.Data) < stride*h {
			return nil, errShortFrame
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			src := f.Data[y*stride:]
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < w; x++ {
				dst[x*4+0] = src[x*3+0]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+2]
				dst[x*4+3] = 0xff
			}
		}
		return img, nil
	case v4l2.PixFmtGrey:
		if len(f.Data) < stride*h {
			return nil, errShortFrame
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], f.Data[y*stride:y*stride+w])
		}
		return img, nil
	default:
		return nil, &unsupportedEncodingError{f.FourCC}
	}
}

var errShortFrame = &frameError{"frame data shorter than its declared geometry"}

type frameError struct{ msg string }

func (e *frameError) Error() string { return e.msg }

type unsupportedEncodingError struct{ cc v4l2.FourCC }

func (e *unsupportedEncodingError) Error() string {
	return "cannot encode " + e.cc.String() + " as PNG"
}
