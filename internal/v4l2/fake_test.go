//go:build linux

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// fakeDriver scripts the kernel side of a session. It emulates just
// enough VIDIOC behavior for the state machine to run end to end and
// records the calls the session makes so tests can assert ordering.
type fakeDriver struct {
	// identity and enumeration data served to the session
	card   string
	driver string
	caps   uint32
	pix    pixFormat
	descs  []fmtDesc
	ctrls  []queryCtrl
	menus  map[uint32][]queryMenu
	sizes  map[uint32][]frmSizeDiscrete
	values map[uint32]int32

	// buffer pool behavior
	grant  uint32
	bufLen uint32

	// fail forces an errno for a specific request
	fail map[uintptr]error

	// scribbleOnRequeue overwrites the buffer's mapping when the
	// session requeues it, so a test can prove the copy happened first
	scribbleOnRequeue bool

	// recorded state
	mappings   map[int64][]byte // by mmap offset
	queued     []uint32
	dequeueIdx []uint32 // indices DQBUF hands out, consumed in order
	streaming  bool
	streamOns  int
	streamOffs int
	released   int // zero-count buffer requests
	munmaps    int
	sets       []control
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		card:   "Fake Camera",
		driver: "fakevid",
		caps:   capVideoCapture | capStreaming,
		pix: pixFormat{
			width: 640, height: 480,
			pixelFormat:  uint32(PixFmtYUYV),
			bytesPerLine: 1280,
			sizeImage:    614400,
		},
		grant:    4,
		bufLen:   614400,
		values:   map[uint32]int32{},
		menus:    map[uint32][]queryMenu{},
		sizes:    map[uint32][]frmSizeDiscrete{},
		fail:     map[uintptr]error{},
		mappings: map[int64][]byte{},
	}
}

func (f *fakeDriver) ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	if err, ok := f.fail[req]; ok {
		return err
	}
	switch req {
	case vidiocQueryCap:
		c := (*capability)(arg)
		copy(c.card[:], f.card)
		copy(c.driver[:], f.driver)
		copy(c.busInfo[:], "platform:fake")
		c.version = 6<<16 | 1<<8
		c.capabilities = f.caps

	case vidiocGFmt:
		(*format)(arg).pix = f.pix

	case vidiocSFmt:
		g := (*format)(arg)
		f.pix.width = g.pix.width
		f.pix.height = g.pix.height
		f.pix.pixelFormat = g.pix.pixelFormat
		f.pix.bytesPerLine = g.pix.width * 2
		f.pix.sizeImage = g.pix.width * g.pix.height * 2
		g.pix = f.pix

	case vidiocEnumFmt:
		d := (*fmtDesc)(arg)
		if int(d.index) >= len(f.descs) {
			return unix.EINVAL
		}
		v := f.descs[d.index]
		v.index = d.index
		*d = v

	case vidiocEnumFrameSizes:
		e := (*frmSizeEnum)(arg)
		list := f.sizes[e.pixelFormat]
		if int(e.index) >= len(list) {
			return unix.EINVAL
		}
		e.typ = frmSizeTypeDiscrete
		e.discrete = list[e.index]

	case vidiocQueryCtrl:
		qc := (*queryCtrl)(arg)
		if qc.id&ctrlFlagNextCtrl != 0 {
			want := qc.id &^ ctrlFlagNextCtrl
			for _, c := range f.ctrls {
				if c.id > want {
					*qc = c
					return nil
				}
			}
			return unix.EINVAL
		}
		for _, c := range f.ctrls {
			if c.id == qc.id {
				*qc = c
				return nil
			}
		}
		return unix.EINVAL

	case vidiocQueryMenu:
		qm := (*queryMenu)(arg)
		for _, m := range f.menus[qm.id] {
			if m.index == qm.index {
				*qm = m
				return nil
			}
		}
		return unix.EINVAL

	case vidiocGCtrl:
		c := (*control)(arg)
		v, ok := f.values[c.id]
		if !ok {
			return unix.EINVAL
		}
		c.value = v

	case vidiocSCtrl:
		c := (*control)(arg)
		f.values[c.id] = c.value
		f.sets = append(f.sets, *c)

	case vidiocReqBufs:
		r := (*requestBuffers)(arg)
		if r.count == 0 {
			f.released++
			return nil
		}
		if r.count > f.grant {
			r.count = f.grant
		}

	case vidiocQueryBuf:
		b := (*buffer)(arg)
		b.offset = (b.index + 1) * 0x1000
		b.length = f.bufLen

	case vidiocQBuf:
		b := (*buffer)(arg)
		f.queued = append(f.queued, b.index)
		if f.scribbleOnRequeue && f.streaming {
			mem := f.mappings[int64((b.index+1)*0x1000)]
			for i := range mem {
				mem[i] = 0xee
			}
		}

	case vidiocDQBuf:
		b := (*buffer)(arg)
		if len(f.dequeueIdx) == 0 {
			return unix.EIO
		}
		b.index = f.dequeueIdx[0]
		f.dequeueIdx = f.dequeueIdx[1:]
		b.bytesUsed = f.bufLen

	case vidiocStreamOn:
		f.streaming = true
		f.streamOns++

	case vidiocStreamOff:
		f.streaming = false
		f.streamOffs++

	default:
		return unix.ENOTTY
	}
	return nil
}

func (f *fakeDriver) mmap(fd int, offset int64, length int) ([]byte, error) {
	mem := make([]byte, length)
	f.mappings[offset] = mem
	return mem, nil
}

func (f *fakeDriver) munmap(b []byte) error {
	f.munmaps++
	return nil
}

// failingMmap wraps a fakeDriver so the nth mmap call fails.
type failingMmap struct {
	*fakeDriver
	failAt int
	calls  int
}

func (f *failingMmap) mmap(fd int, offset int64, length int) ([]byte, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, unix.ENOMEM
	}
	return f.fakeDriver.mmap(fd, offset, length)
}
