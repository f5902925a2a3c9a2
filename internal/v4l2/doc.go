// Package v4l2 drives Video4Linux2 capture devices: session lifecycle,
// format negotiation, control access and memory-mapped streaming I/O,
// implemented directly on ioctl with no cgo.
package v4l2
