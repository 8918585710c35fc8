package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
}

func TestString(t *testing.T) {
	info := Get()
	expected := info.Version + " (" + info.Commit + ") built at " + info.BuildTime
	if s := String(); s != expected {
		t.Errorf("String() = %q, want %q", s, expected)
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}

	info := Info{Version: "dev", Commit: "unknown", BuildTime: "unknown", GoVersion: "unknown"}
	fillFromBuildInfo(&info, bi)

	if info.GoVersion != "go1.24.4" {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, "go1.24.4")
	}
	if info.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want %q", info.Commit, "0123456789ab")
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("BuildTime = %q, want %q", info.BuildTime, "2026-01-02T03:04:05Z")
	}
}

func TestFillFromBuildInfo_KeepsInjected(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Settings:  []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}

	info := Info{Version: "v1.0.0", Commit: "abc123", BuildTime: "now", GoVersion: "go1.23"}
	fillFromBuildInfo(&info, bi)

	if info.Commit != "abc123" || info.GoVersion != "go1.23" {
		t.Errorf("injected values overwritten: %+v", info)
	}
}
