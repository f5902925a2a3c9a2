//go:build linux

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// sysops is the seam between the session/buffer-pool state machines and
// the kernel. Tests substitute a scripted fake driver.
type sysops interface {
	ioctl(fd int, req uintptr, arg unsafe.Pointer) error
	mmap(fd int, offset int64, length int) ([]byte, error)
	munmap(b []byte) error
}

type realSys struct{}

func (realSys) ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		if errno == 0 {
			return nil
		}
		if errno != unix.EINTR {
			return errno
		}
	}
}

func (realSys) mmap(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (realSys) munmap(b []byte) error {
	return unix.Munmap(b)
}
