// Package version exposes build metadata stamped in via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X .../version.Version=v1.2.3 ...".
// A binary built without stamping identifies itself as a dev build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the full build description served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get assembles build metadata with the runtime details filled in.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
