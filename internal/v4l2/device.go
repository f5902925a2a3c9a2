//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Capability is the identity and feature summary a device reports at
// open time.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Version string

	CanReadWrite bool
	CanStream    bool
}

type sessionState int

const (
	stateClosed sessionState = iota
	stateOpened
	stateStreaming
)

// bufferCountHint is how many capture buffers a session asks the
// driver for. The driver may grant fewer; fewer than two aborts the
// stream start.
const bufferCountHint = 4

// Device is an exclusive session on one video capture node. It owns
// the file descriptor, the memory-mapped buffer pool and a mirror of
// the currently negotiated format. All methods are safe for concurrent
// use; Capture blocks without holding the session lock so control and
// format operations stay responsive while a frame is pending.
type Device struct {
	path string
	log  *slog.Logger
	sys  sysops

	mu    sync.Mutex
	fd    int
	state sessionState
	pool  bufferPool

	caps     Capability
	formats  []ImageFormat
	controls []Control

	// format mirrors the last format the driver confirmed. Stored as an
	// atomic pointer so frame consumers snapshot it without locking.
	format atomic.Pointer[PixelFormat]
}

// Open establishes a session on the capture node at path. It verifies
// the node supports video capture and streaming I/O, reads the
// driver's current format and enumerates the supported image formats
// and controls. Enumeration is best effort: a device exposing no
// formats or no controls opens fine with empty descriptor sets.
func Open(path string, log *slog.Logger) (*Device, error) {
	if log == nil {
		log = slog.Default()
	}
	return open(path, log, realSys{})
}

func open(path string, log *slog.Logger, sys sysops) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	d := &Device{
		path:  path,
		log:   log.With("device", path),
		sys:   sys,
		fd:    fd,
		state: stateOpened,
	}

	if err := d.queryCapabilities(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if !d.caps.CanStream {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s (%s): %w", path, d.caps.Card, ErrNotCapture)
	}

	cur, err := d.readFormat()
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("reading current format of %s: %w", path, err)
	}
	d.format.Store(&cur)

	d.formats = d.listFormats()
	d.controls = d.listControls()

	d.log.Info("device opened",
		"card", d.caps.Card,
		"driver", d.caps.Driver,
		"bus", d.caps.BusInfo,
		"format", cur.String(),
		"formats", len(d.formats),
		"controls", len(d.controls))
	return d, nil
}

// Probe opens path just long enough to read its capability summary.
// Used by device discovery to tell capture nodes apart from metadata
// and output nodes without committing to a session.
func Probe(path string) (Capability, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return Capability{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer unix.Close(fd)

	d := &Device{path: path, sys: realSys{}, fd: fd}
	if err := d.queryCapabilities(); err != nil {
		return Capability{}, err
	}
	return d.caps, nil
}

func (d *Device) queryCapabilities() error {
	var raw capability
	if err := d.sys.ioctl(d.fd, vidiocQueryCap, unsafe.Pointer(&raw)); err != nil {
		return fmt.Errorf("querying capabilities of %s: %w", d.path, err)
	}

	caps := raw.capabilities
	if caps&capDeviceCaps != 0 {
		caps = raw.deviceCaps
	}
	d.caps = Capability{
		Driver:  cstr(raw.driver[:]),
		Card:    cstr(raw.card[:]),
		BusInfo: cstr(raw.busInfo[:]),
		Version: fmt.Sprintf("%d.%d.%d",
			raw.version>>16&0xff, raw.version>>8&0xff, raw.version&0xff),
		CanReadWrite: caps&capReadWrite != 0,
		CanStream:    caps&capVideoCapture != 0 && caps&capStreaming != 0,
	}
	return nil
}

func (d *Device) readFormat() (PixelFormat, error) {
	f := format{typ: bufTypeVideoCapture}
	if err := d.sys.ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return PixelFormat{}, err
	}
	return pixelFormatFromPix(f.pix), nil
}

// listFormats walks the format enumeration until the driver reports
// the end of the list. Any error terminates the walk with whatever was
// collected so far.
func (d *Device) listFormats() []ImageFormat {
	var out []ImageFormat
	for i := uint32(0); ; i++ {
		desc := fmtDesc{index: i, typ: bufTypeVideoCapture}
		if err := d.sys.ioctl(d.fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			return out
		}
		out = append(out, ImageFormat{
			Index:       i,
			FourCC:      FourCC(desc.pixelFormat),
			Description: cstr(desc.description[:]),
			Compressed:  desc.flags&fmtFlagCompressed != 0,
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
}

// FrameSizes enumerates the discrete frame sizes the device supports
// for a pixel format. Devices reporting stepwise or continuous ranges
// yield an empty list.
func (d *Device) FrameSizes(cc FourCC) []FrameSize {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == stateClosed {
		return nil
	}

	var out []FrameSize
	for i := uint32(0); ; i++ {
		e := frmSizeEnum{index: i, pixelFormat: uint32(cc)}
		if err := d.sys.ioctl(d.fd, vidiocEnumFrameSizes, unsafe.Pointer(&e)); err != nil {
			return out
		}
		if e.typ != frmSizeTypeDiscrete {
			return out
		}
		out = append(out, FrameSize{Width: e.discrete.width, Height: e.discrete.height})
	}
}

// listControls walks the extended control enumeration. Disabled
// controls are skipped but the walk keeps advancing; a failed menu
// item query drops that item only.
func (d *Device) listControls() []Control {
	var out []Control
	qc := queryCtrl{id: ctrlFlagNextCtrl}
	for d.sys.ioctl(d.fd, vidiocQueryCtrl, unsafe.Pointer(&qc)) == nil {
		id := qc.id
		if qc.flags&ctrlFlagDisabled == 0 {
			c := Control{
				ID:      id,
				Name:    cstr(qc.name[:]),
				Type:    controlTypeFromRaw(qc.typ),
				Min:     int64(qc.minimum),
				Max:     int64(qc.maximum),
				Default: int64(qc.defaultValue),
			}
			if c.Type == ControlTypeMenu {
				c.MenuItems = d.listMenuItems(id, qc.minimum, qc.maximum)
			}
			out = append(out, c)
		}
		qc = queryCtrl{id: id | ctrlFlagNextCtrl}
	}
	return out
}

func (d *Device) listMenuItems(id uint32, min, max int32) []MenuItem {
	var items []MenuItem
	for i := min; i <= max; i++ {
		qm := queryMenu{id: id, index: uint32(i)}
		if err := d.sys.ioctl(d.fd, vidiocQueryMenu, unsafe.Pointer(&qm)); err != nil {
			continue
		}
		items = append(items, MenuItem{Index: int64(i), Name: cstr(qm.name[:])})
	}
	return items
}

// Path returns the device node path the session was opened on.
func (d *Device) Path() string { return d.path }

// Capabilities returns the capability summary read at open time.
func (d *Device) Capabilities() Capability { return d.caps }

// Formats returns the image formats enumerated at open time.
func (d *Device) Formats() []ImageFormat { return d.formats }

// Controls returns the control descriptors enumerated at open time.
func (d *Device) Controls() []Control { return d.controls }

// Format returns the session's mirror of the currently negotiated
// format. It is a lock-free snapshot and may lag an in-flight
// negotiation by one update.
func (d *Device) Format() PixelFormat {
	return *d.format.Load()
}

// Name derives a stable identifier from the reported card name,
// lowercased with runs of non-alphanumerics collapsed to underscores.
func (d *Device) Name() string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(d.caps.Card) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// RequestFormat negotiates a new capture format. The driver is free to
// substitute the closest layout it supports, so the returned format is
// the driver's answer, not the request; only an outright rejection is
// an error. The stream must be off.
func (d *Device) RequestFormat(want PixelFormat) (PixelFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case stateClosed:
		return PixelFormat{}, ErrClosed
	case stateStreaming:
		return PixelFormat{}, fmt.Errorf("cannot negotiate format: %w", ErrStreaming)
	}

	f := format{typ: bufTypeVideoCapture}
	f.pix = pixFormat{
		width:       want.Width,
		height:      want.Height,
		pixelFormat: uint32(want.FourCC),
		field:       fieldAny,
	}
	if err := d.sys.ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return PixelFormat{}, fmt.Errorf("%s for %s: %w: %w", want, d.path, ErrFormatRejected, err)
	}

	got := pixelFormatFromPix(f.pix)
	d.format.Store(&got)
	if got.FourCC != want.FourCC || got.Width != want.Width || got.Height != want.Height {
		d.log.Warn("driver substituted format", "requested", want.String(), "granted", got.String())
	} else {
		d.log.Debug("format negotiated", "format", got.String())
	}
	return got, nil
}

// ControlValue reads the current value of a control. Read failures are
// soft: the value reported is 0 alongside an error wrapping
// ErrControlRead, so enumerating all current values over a flaky
// control does not abort the walk.
func (d *Device) ControlValue(id uint32) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == stateClosed {
		return 0, ErrClosed
	}

	c := control{id: id}
	if err := d.sys.ioctl(d.fd, vidiocGCtrl, unsafe.Pointer(&c)); err != nil {
		return 0, fmt.Errorf("control 0x%08x on %s: %w: %w", id, d.path, ErrControlRead, err)
	}
	return int64(c.value), nil
}

// SetControlValue applies a control value. The control descriptor is
// re-queried first so setting a control the device never had fails
// with ErrControlUnsupported rather than a bare errno.
func (d *Device) SetControlValue(id uint32, value int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == stateClosed {
		return ErrClosed
	}

	qc := queryCtrl{id: id}
	if err := d.sys.ioctl(d.fd, vidiocQueryCtrl, unsafe.Pointer(&qc)); err != nil {
		return fmt.Errorf("control 0x%08x on %s: %w", id, d.path, ErrControlUnsupported)
	}

	c := control{id: id, value: int32(value)}
	if err := d.sys.ioctl(d.fd, vidiocSCtrl, unsafe.Pointer(&c)); err != nil {
		return fmt.Errorf("control %q (0x%08x) = %d on %s: %w: %w",
			cstr(qc.name[:]), id, value, d.path, ErrControlWrite, err)
	}
	d.log.Debug("control set", "control", cstr(qc.name[:]), "value", value)
	return nil
}

// Start allocates and maps the buffer pool, enqueues every buffer and
// turns the stream on. Any failure unwinds completely: the pool is
// released, the driver-side allocation is returned and the session
// stays in the opened state with the stream off.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case stateClosed:
		return ErrClosed
	case stateStreaming:
		return nil
	}

	if err := d.pool.allocate(d.sys, d.fd, bufferCountHint); err != nil {
		d.releaseBuffers()
		return err
	}

	for i := 0; i < d.pool.count(); i++ {
		buf := buffer{
			index:  uint32(i),
			typ:    bufTypeVideoCapture,
			memory: memoryMmap,
		}
		if err := d.sys.ioctl(d.fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
			d.releaseBuffers()
			return fmt.Errorf("enqueuing buffer %d: %w", i, err)
		}
	}

	typ := int32(bufTypeVideoCapture)
	if err := d.sys.ioctl(d.fd, vidiocStreamOn, unsafe.Pointer(&typ)); err != nil {
		d.releaseBuffers()
		return fmt.Errorf("starting stream on %s: %w", d.path, err)
	}

	d.state = stateStreaming
	d.log.Info("streaming started", "buffers", d.pool.count(), "format", d.format.Load().String())
	return nil
}

// Stop turns the stream off and tears down the buffer pool. Stopping a
// session that is not streaming is a no-op.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateStreaming {
		return nil
	}

	typ := int32(bufTypeVideoCapture)
	if err := d.sys.ioctl(d.fd, vidiocStreamOff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("stopping stream on %s: %w", d.path, err)
	}
	d.state = stateOpened
	d.releaseBuffers()
	d.log.Info("streaming stopped")
	return nil
}

// releaseBuffers unmaps the pool and returns the driver-side
// allocation. Called with d.mu held.
func (d *Device) releaseBuffers() {
	d.pool.release(d.sys)
	req := requestBuffers{typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := d.sys.ioctl(d.fd, vidiocReqBufs, unsafe.Pointer(&req)); err != nil {
		d.log.Debug("releasing driver buffers failed", "error", err)
	}
}

// Capture dequeues the next filled buffer, copies it out and requeues
// the buffer. The returned slice is freshly allocated and owned by the
// caller; the copy length is the size the current format mirror
// reports, taken strictly between dequeue and requeue so the kernel
// never mutates the bytes being read. Capture blocks until the driver
// fills a buffer and must not be called concurrently with itself.
func (d *Device) Capture() ([]byte, PixelFormat, error) {
	d.mu.Lock()
	if d.state != stateStreaming {
		closed := d.state == stateClosed
		d.mu.Unlock()
		if closed {
			return nil, PixelFormat{}, ErrClosed
		}
		return nil, PixelFormat{}, ErrNotStreaming
	}
	fd := d.fd
	d.mu.Unlock()

	// Blocks until a frame is ready. Held outside the lock so Stop and
	// control access are not starved by a slow sensor.
	buf := buffer{typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := d.sys.ioctl(fd, vidiocDQBuf, unsafe.Pointer(&buf)); err != nil {
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENODEV) {
			return nil, PixelFormat{}, fmt.Errorf("dequeuing buffer: %w", ErrClosed)
		}
		return nil, PixelFormat{}, fmt.Errorf("dequeuing buffer on %s: %w", d.path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateStreaming {
		// Stop won the race; the pool is gone and so is the frame.
		return nil, PixelFormat{}, ErrNotStreaming
	}

	mem, err := d.pool.at(buf.index)
	if err != nil {
		return nil, PixelFormat{}, err
	}

	pf := *d.format.Load()
	n := int(pf.SizeImage)
	if n > len(mem) {
		return nil, PixelFormat{}, fmt.Errorf("format reports %d bytes but buffer %d holds %d", n, buf.index, len(mem))
	}
	out := make([]byte, n)
	copy(out, mem[:n])

	if err := d.sys.ioctl(fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
		return nil, PixelFormat{}, fmt.Errorf("requeuing buffer %d: %w", buf.index, err)
	}
	return out, pf, nil
}

// Close stops the stream if needed and releases the file descriptor.
// Closing a closed session is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateClosed {
		return nil
	}
	if d.state == stateStreaming {
		typ := int32(bufTypeVideoCapture)
		if err := d.sys.ioctl(d.fd, vidiocStreamOff, unsafe.Pointer(&typ)); err != nil {
			d.log.Warn("stopping stream during close failed", "error", err)
		}
		d.releaseBuffers()
	}
	err := unix.Close(d.fd)
	d.state = stateClosed
	d.fd = -1
	d.log.Info("device closed")
	return err
}
