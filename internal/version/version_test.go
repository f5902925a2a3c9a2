package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetFillsRuntimeDetails(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if !strings.HasPrefix(info.Platform, runtime.GOOS+"/") {
		t.Errorf("Platform = %q, want %s/<arch>", info.Platform, runtime.GOOS)
	}
}

func TestUnstampedBuildIsDev(t *testing.T) {
	if Version != "dev" {
		t.Skip("binary was stamped")
	}
	info := Get()
	if info.GitCommit != "unknown" || info.BuildDate != "unknown" {
		t.Errorf("unstamped build reported commit %q date %q", info.GitCommit, info.BuildDate)
	}
}
