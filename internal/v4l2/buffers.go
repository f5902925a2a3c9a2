//go:build linux

package v4l2

import (
	"fmt"
	"unsafe"
)

// mapping is one kernel capture buffer mapped into the process.
type mapping struct {
	index uint32
	mem   []byte
}

// bufferPool owns the memory-mapped capture buffers of a streaming
// session. It is created empty, filled by allocate, and drained by
// release. The pool itself is not safe for concurrent use; the owning
// Device serializes access.
type bufferPool struct {
	maps []mapping
}

// allocate negotiates count buffers with the driver and maps every
// granted buffer. The driver may grant fewer buffers than requested;
// fewer than two is reported as ErrInsufficientBuffers. Mapping is
// all or nothing: on any failure every mapping established so far is
// unwound and the pool is left empty. The caller is responsible for
// returning the driver-side allocation with a zero-count buffer
// request afterwards.
func (p *bufferPool) allocate(sys sysops, fd int, count uint32) error {
	req := requestBuffers{
		count:  count,
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	if err := sys.ioctl(fd, vidiocReqBufs, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("requesting %d buffers: %w", count, err)
	}
	if req.count < 2 {
		return fmt.Errorf("driver granted %d of %d buffers: %w", req.count, count, ErrInsufficientBuffers)
	}

	for i := uint32(0); i < req.count; i++ {
		buf := buffer{
			index:  i,
			typ:    bufTypeVideoCapture,
			memory: memoryMmap,
		}
		if err := sys.ioctl(fd, vidiocQueryBuf, unsafe.Pointer(&buf)); err != nil {
			p.release(sys)
			return fmt.Errorf("querying buffer %d: %w: %w", i, ErrMapFailed, err)
		}
		mem, err := sys.mmap(fd, int64(buf.offset), int(buf.length))
		if err != nil {
			p.release(sys)
			return fmt.Errorf("mapping buffer %d (%d bytes): %w: %w", i, buf.length, ErrMapFailed, err)
		}
		p.maps = append(p.maps, mapping{index: i, mem: mem})
	}
	return nil
}

// release unmaps every buffer. Unmap failures are ignored; there is no
// way to retry a stale mapping. Safe to call on an empty pool.
func (p *bufferPool) release(sys sysops) {
	for _, m := range p.maps {
		_ = sys.munmap(m.mem)
	}
	p.maps = nil
}

// at returns the mapped memory for a driver-reported buffer index.
func (p *bufferPool) at(index uint32) ([]byte, error) {
	if int(index) >= len(p.maps) {
		return nil, fmt.Errorf("buffer index %d with %d buffers allocated: %w", index, len(p.maps), ErrCorruptIndex)
	}
	return p.maps[index].mem, nil
}

func (p *bufferPool) count() int {
	return len(p.maps)
}
