//go:build linux

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Kernel ABI for the video capture subset of <linux/videodev2.h>.
// Struct layouts match the 64-bit ABI (amd64/arm64); ioctl request
// numbers are derived from the struct sizes so they stay correct
// across architectures.

const (
	bufTypeVideoCapture = 1
	memoryMmap          = 1
	fieldAny            = 0
)

// Capability flags reported by VIDIOC_QUERYCAP.
const (
	capVideoCapture = 0x00000001
	capReadWrite    = 0x01000000
	capStreaming    = 0x04000000
	capDeviceCaps   = 0x80000000
)

// Control enumeration constants.
const (
	ctrlClassUser    = 0x00980000
	ctrlFlagDisabled = 0x00000001
	ctrlFlagNextCtrl = 0x80000000

	ctrlTypeInteger     = 1
	ctrlTypeBoolean     = 2
	ctrlTypeMenu        = 3
	ctrlTypeIntegerMenu = 9
)

// Format description flags reported by VIDIOC_ENUM_FMT.
const (
	fmtFlagCompressed = 0x0001
	fmtFlagEmulated   = 0x0002
)

type capability struct { // size 104
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

type pixFormat struct { // size 48
	width        uint32
	height       uint32
	pixelFormat  uint32
	field        uint32
	bytesPerLine uint32
	sizeImage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

type format struct { // size 208
	typ uint32
	_   [4]byte // union aligned to 8 on 64-bit
	pix pixFormat
	_   [200 - unsafe.Sizeof(pixFormat{})]byte // remainder of the fmt union
}

type requestBuffers struct { // size 20
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

type timecode struct { // size 16
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type buffer struct { // size 88
	index     uint32
	typ       uint32
	bytesUsed uint32
	flags     uint32
	field     uint32
	_         [4]byte
	timestamp unix.Timeval
	timecode  timecode
	sequence  uint32
	memory    uint32
	offset    uint32 // first word of the m union
	_         [4]byte
	length    uint32
	reserved2 uint32
	requestFD int32
}

type fmtDesc struct { // size 64
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelFormat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

type queryCtrl struct { // size 68
	id           uint32
	typ          uint32
	name         [32]byte
	minimum      int32
	maximum      int32
	step         int32
	defaultValue int32
	flags        uint32
	reserved     [2]uint32
}

type queryMenu struct { // size 44, packed in the kernel
	id       uint32
	index    uint32
	name     [32]byte // union with a 64-bit value for integer menus
	reserved uint32
}

type control struct { // size 8
	id    uint32
	value int32
}

type frmSizeEnum struct { // size 44
	index       uint32
	pixelFormat uint32
	typ         uint32
	discrete    frmSizeDiscrete
	_           [24]byte // remainder of the stepwise union + reserved
}

type frmSizeDiscrete struct { // size 8
	width  uint32
	height uint32
}

const frmSizeTypeDiscrete = 1

// _IOC macro construction, see <asm-generic/ioctl.h>.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func ior(typ, nr, size uintptr) uintptr  { return ioc(iocRead, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }

var (
	vidiocQueryCap       = ior('V', 0, unsafe.Sizeof(capability{}))
	vidiocEnumFmt        = iowr('V', 2, unsafe.Sizeof(fmtDesc{}))
	vidiocGFmt           = iowr('V', 4, unsafe.Sizeof(format{}))
	vidiocSFmt           = iowr('V', 5, unsafe.Sizeof(format{}))
	vidiocReqBufs        = iowr('V', 8, unsafe.Sizeof(requestBuffers{}))
	vidiocQueryBuf       = iowr('V', 9, unsafe.Sizeof(buffer{}))
	vidiocQBuf           = iowr('V', 15, unsafe.Sizeof(buffer{}))
	vidiocDQBuf          = iowr('V', 17, unsafe.Sizeof(buffer{}))
	vidiocStreamOn       = iow('V', 18, unsafe.Sizeof(int32(0)))
	vidiocStreamOff      = iow('V', 19, unsafe.Sizeof(int32(0)))
	vidiocGCtrl          = iowr('V', 27, unsafe.Sizeof(control{}))
	vidiocSCtrl          = iowr('V', 28, unsafe.Sizeof(control{}))
	vidiocQueryCtrl      = iowr('V', 36, unsafe.Sizeof(queryCtrl{}))
	vidiocQueryMenu      = iowr('V', 37, unsafe.Sizeof(queryMenu{}))
	vidiocEnumFrameSizes = iowr('V', 74, unsafe.Sizeof(frmSizeEnum{}))
)

// cstr interprets a NUL-terminated byte array field.
func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
