package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camnode/camnode/internal/pixconv"
	"github.com/camnode/camnode/internal/v4l2"
)

// Device is the capture session the camera drives. *v4l2.Device
// satisfies it; tests substitute fakes.
type Device interface {
	Capture() ([]byte, v4l2.PixelFormat, error)
	Start() error
	Stop() error
	RequestFormat(v4l2.PixelFormat) (v4l2.PixelFormat, error)
	Format() v4l2.PixelFormat
	Controls() []v4l2.Control
	ControlValue(id uint32) (int64, error)
	SetControlValue(id uint32, value int64) error
	Close() error
	Path() string
	Name() string
}

// Options tune a Camera. The zero value is usable.
type Options struct {
	// OutputFourCC is the encoding frames are converted to before
	// publishing. Zero publishes frames in the device's native encoding.
	OutputFourCC v4l2.FourCC

	// Sink receives every published frame. Nil discards frames.
	Sink Sink

	// Stats receives per-frame accounting. Nil disables accounting.
	Stats Stats

	// IdleRetry is how long the loop sleeps after a transient capture
	// failure before trying again. Zero means 100ms.
	IdleRetry time.Duration
}

// Camera runs the capture loop of one device and funnels frames to a
// sink, converting encodings on the way when the consumer asked for a
// different one. Reconfiguration stops the stream, renegotiates and
// starts it again without tearing the session down.
type Camera struct {
	dev Device
	log *slog.Logger

	output    atomic.Uint32 // published FourCC, 0 keeps the native encoding
	sink      Sink
	stats     Stats
	idleRetry time.Duration

	// cfgMu serializes reconfiguration against loop shutdown.
	cfgMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	seq uint64
}

// New wraps an opened device. The device is owned by the camera from
// here on; Close releases it.
func New(dev Device, log *slog.Logger, opts Options) *Camera {
	if log == nil {
		log = slog.Default()
	}
	c := &Camera{
		dev:       dev,
		log:       log.With("component", "camera", "camera", dev.Name()),
		sink:      opts.Sink,
		stats:     opts.Stats,
		idleRetry: opts.IdleRetry,
	}
	c.output.Store(uint32(opts.OutputFourCC))
	if c.sink == nil {
		c.sink = SinkFunc(func(Frame) error { return nil })
	}
	if c.stats == nil {
		c.stats = nopStats{}
	}
	if c.idleRetry <= 0 {
		c.idleRetry = 100 * time.Millisecond
	}
	return c
}

// Start turns the stream on and launches the capture loop. Starting a
// running camera is a no-op.
func (c *Camera) Start(ctx context.Context) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()

	if c.running {
		return nil
	}
	if err := c.dev.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	go c.loop(loopCtx)
	return nil
}

// Stop cancels the loop, waits for it to drain and turns the stream
// off. Stopping a stopped camera is a no-op.
func (c *Camera) Stop() error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.stopLocked()
}

func (c *Camera) stopLocked() error {
	if !c.running {
		return nil
	}
	c.cancel()
	// Stop the device first so a Capture blocked in the driver returns.
	err := c.dev.Stop()
	<-c.done
	c.running = false
	return err
}

// Close stops the loop if needed and releases the device.
func (c *Camera) Close() error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	stopErr := c.stopLocked()
	closeErr := c.dev.Close()
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}

// Running reports whether the capture loop is active.
func (c *Camera) Running() bool {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.running
}

// Format returns the device's current format mirror.
func (c *Camera) Format() v4l2.PixelFormat { return c.dev.Format() }

// SetFormat renegotiates the capture format. Asking for the format
// already in effect is suppressed without touching the device. On a
// running camera the stream is stopped for the negotiation and started
// again; the loop keeps running and idles across the gap.
func (c *Camera) SetFormat(want v4l2.PixelFormat) (v4l2.PixelFormat, error) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()

	cur := c.dev.Format()
	if want.FourCC == cur.FourCC && want.Width == cur.Width && want.Height == cur.Height {
		return cur, nil
	}

	wasStreaming := c.running
	if wasStreaming {
		if err := c.dev.Stop(); err != nil {
			return cur, fmt.Errorf("stopping stream for format change: %w", err)
		}
	}

	got, err := c.dev.RequestFormat(want)
	if err == nil {
		c.log.Info("format changed", "from", cur.String(), "to", got.String())
	}

	if wasStreaming {
		if startErr := c.dev.Start(); startErr != nil {
			if err == nil {
				err = fmt.Errorf("restarting stream after format change: %w", startErr)
			}
		}
	}
	if err != nil {
		return c.dev.Format(), err
	}
	return got, nil
}

// SetOutputFourCC changes the published encoding. Takes effect on the
// next frame.
func (c *Camera) SetOutputFourCC(cc v4l2.FourCC) {
	c.output.Store(uint32(cc))
}

func (c *Camera) outputFourCC() v4l2.FourCC {
	return v4l2.FourCC(c.output.Load())
}

// loop captures until the context is canceled or the session goes
// away. Individual frame failures are counted and logged but never
// fatal; a stream paused for reconfiguration idles until it resumes.
func (c *Camera) loop(ctx context.Context) {
	defer close(c.done)

	for {
		if ctx.Err() != nil {
			return
		}

		begin := time.Now()
		data, pf, err := c.dev.Capture()
		ts := time.Now()

		switch {
		case err == nil:
		case errors.Is(err, v4l2.ErrClosed):
			c.log.Info("capture loop exiting", "reason", "device closed")
			return
		case errors.Is(err, v4l2.ErrNotStreaming):
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.idleRetry):
			}
			continue
		default:
			c.stats.CaptureError(err)
			c.log.Warn("frame capture failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.idleRetry):
			}
			continue
		}

		c.stats.FrameCaptured(ts.Sub(begin), len(data))
		c.publish(data, pf, ts)
	}
}

func (c *Camera) publish(data []byte, pf v4l2.PixelFormat, ts time.Time) {
	out := c.outputFourCC()
	cc := pf.FourCC
	stride := pf.BytesPerLine

	if out != 0 && out != pf.FourCC {
		converted, err := pixconv.Convert(data, pf.FourCC, out, int(pf.Width), int(pf.Height), int(pf.BytesPerLine))
		if err != nil {
			c.stats.FrameDropped()
			c.log.Warn("frame conversion failed", "error", err)
			return
		}
		// Every encoding Convert can emit has a fixed pixel stride. A
		// zero bpp means a compressed target slipped through and the
		// frame has no usable stride.
		bpp := out.BytesPerPixel()
		if bpp == 0 {
			c.stats.FrameDropped()
			c.log.Warn("output encoding has no fixed pixel stride", "fourcc", out.String())
			return
		}
		data = converted
		cc = out
		stride = pf.Width * bpp
	}

	c.seq++
	frame := Frame{
		Data:      data,
		Width:     pf.Width,
		Height:    pf.Height,
		Stride:    stride,
		FourCC:    cc,
		Timestamp: ts,
		Sequence:  c.seq,
	}
	if err := c.sink.Publish(frame); err != nil {
		c.stats.FrameDropped()
		c.log.Warn("frame dropped by sink", "error", err)
	}
}
