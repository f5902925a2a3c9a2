package v4l2

import "errors"

// Session and buffer-pool failure classes. Concrete errors wrap one of
// these sentinels, so callers classify with errors.Is and still see the
// underlying errno in the message.
var (
	// ErrNotCapture means the opened path is not a video capture device.
	ErrNotCapture = errors.New("v4l2: not a video capture device")

	// ErrFormatRejected means the driver refused a format negotiation
	// request outright. A driver silently substituting another format is
	// not an error; callers must re-read the negotiated result.
	ErrFormatRejected = errors.New("v4l2: format request rejected")

	// ErrControlUnsupported means the device rejected the control
	// descriptor query, so the control cannot be set.
	ErrControlUnsupported = errors.New("v4l2: control not supported by device")

	// ErrControlRead means reading a control value failed; the reported
	// value is 0 and enumeration of other controls may continue.
	ErrControlRead = errors.New("v4l2: control read failed")

	// ErrControlWrite means applying a control value failed.
	ErrControlWrite = errors.New("v4l2: control write failed")

	// ErrInsufficientBuffers means the driver granted fewer than two
	// capture buffers; single-buffering cannot overlap capture with
	// consumption.
	ErrInsufficientBuffers = errors.New("v4l2: insufficient buffer memory")

	// ErrMapFailed means mapping a kernel buffer into the process failed;
	// any mappings already established by the same call were unwound.
	ErrMapFailed = errors.New("v4l2: buffer mapping failed")

	// ErrCorruptIndex means the driver returned a buffer index outside
	// the allocated set. The session cannot trust the buffer pool any
	// more; this is fatal to the stream.
	ErrCorruptIndex = errors.New("v4l2: dequeued buffer index out of range")

	// ErrNotStreaming means capture was attempted while the stream is
	// off, for example during a reconfiguration stop/start cycle.
	ErrNotStreaming = errors.New("v4l2: device is not streaming")

	// ErrStreaming means an operation that requires the stream to be off
	// was attempted while streaming.
	ErrStreaming = errors.New("v4l2: device is streaming")

	// ErrClosed means the session has been closed.
	ErrClosed = errors.New("v4l2: device is closed")
)
