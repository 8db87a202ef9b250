package config

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetBuildInfo(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	info := GetBuildInfo()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestVersionString(t *testing.T) {
	old := Version
	Version = "v0.4.0"
	defer func() { Version = old }()

	got := VersionString()
	if !strings.HasPrefix(got, "blazewatch v0.4.0 (") {
		t.Errorf("VersionString = %q", got)
	}
	if !strings.HasSuffix(got, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("VersionString = %q, want platform suffix", got)
	}
}
