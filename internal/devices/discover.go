//go:build linux

// Package devices finds video capture nodes and keeps an eye on them
// appearing and vanishing.
package devices

import (
	"path/filepath"
	"sort"

	"github.com/camnode/camnode/internal/v4l2"
)

// Info summarizes one capture-capable device node.
type Info struct {
	Path    string `json:"path" example:"/dev/video0" doc:"Device node path"`
	Card    string `json:"card" example:"HD Pro Webcam C920" doc:"Reported card name"`
	Driver  string `json:"driver" example:"uvcvideo" doc:"Kernel driver name"`
	BusInfo string `json:"bus_info" example:"usb-0000:00:14.0-3" doc:"Bus location"`
}

// probe is swapped out by tests.
var probe = v4l2.Probe

// listNodes is swapped out by tests.
var listNodes = func() ([]string, error) {
	return filepath.Glob("/dev/video*")
}

// Discover probes every /dev/video* node and returns the ones that can
// capture with streaming I/O. Nodes that refuse to open or report
// other functions (metadata, output) are skipped; a machine with no
// cameras yields an empty list, not an error.
func Discover() ([]Info, error) {
	paths, err := listNodes()
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []Info
	for _, path := range paths {
		caps, err := probe(path)
		if err != nil || !caps.CanStream {
			continue
		}
		out = append(out, Info{
			Path:    path,
			Card:    caps.Card,
			Driver:  caps.Driver,
			BusInfo: caps.BusInfo,
		})
	}
	return out, nil
}
