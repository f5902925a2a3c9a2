package devices

import (
	"fmt"
	"os"
	"strings"
)

// ResolvePath converts a stable device identifier into a usable node
// path. Full paths pass through; by-id and by-path symlinks are tried
// for identifiers that survive re-enumeration across reboots.
func ResolvePath(deviceID string) (string, error) {
	if strings.HasPrefix(deviceID, "/dev/") {
		return deviceID, nil
	}

	// by-id first (for USB devices)
	if strings.HasPrefix(deviceID, "usb-") {
		devicePath := "/dev/v4l/by-id/" + deviceID
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	// by-path (for platform devices and USB devices without by-id)
	if strings.HasPrefix(deviceID, "platform-") || strings.HasPrefix(deviceID, "usb-") {
		devicePath := "/dev/v4l/by-path/" + deviceID
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	return "", fmt.Errorf("no stable symlink found for device ID: %s", deviceID)
}
