package v4l2

// ControlType classifies a device control. Only integer, boolean and
// menu controls are supported; everything else a driver reports is
// kept with an Unsupported tag so callers can list it without being
// able to set it.
type ControlType int

const (
	ControlTypeUnsupported ControlType = iota
	ControlTypeInteger
	ControlTypeBoolean
	ControlTypeMenu
)

func (t ControlType) String() string {
	switch t {
	case ControlTypeInteger:
		return "int"
	case ControlTypeBoolean:
		return "bool"
	case ControlTypeMenu:
		return "menu"
	default:
		return "unsupported"
	}
}

func controlTypeFromRaw(raw uint32) ControlType {
	switch raw {
	case ctrlTypeInteger:
		return ControlTypeInteger
	case ctrlTypeBoolean:
		return ControlTypeBoolean
	case ctrlTypeMenu, ctrlTypeIntegerMenu:
		return ControlTypeMenu
	default:
		return ControlTypeUnsupported
	}
}

// MenuItem is one legal value of a menu control.
type MenuItem struct {
	Index int64
	Name  string
}

// Control describes one adjustable device setting. Descriptors are
// enumerated once at open time; values are always read and written
// live through the control's ID.
type Control struct {
	ID      uint32
	Name    string
	Type    ControlType
	Min     int64
	Max     int64
	Default int64

	// MenuItems is populated for menu controls only, ordered by index.
	MenuItems []MenuItem
}
