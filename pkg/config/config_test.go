package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir is t.Chdir for toolchains older than Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Capture.Interface != "lo" {
		t.Errorf("Capture.Interface = %q, want lo", c.Capture.Interface)
	}
	if c.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %v", c.Watch.Debounce)
	}
	if c.Telemetry.Enabled {
		t.Error("telemetry must default off")
	}
}

func TestMerge(t *testing.T) {
	m := NewManager()
	m.merge(&Config{
		Capture: CaptureConfig{Interface: "eth0"},
		Analyze: AnalyzeConfig{DisplayBinaryPayload: true},
	})

	c := m.Get()
	if c.Capture.Interface != "eth0" {
		t.Errorf("Interface = %q, want eth0", c.Capture.Interface)
	}
	if !c.Analyze.DisplayBinaryPayload {
		t.Error("DisplayBinaryPayload not merged")
	}
	// Untouched values keep their defaults.
	if c.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want default", c.Watch.Debounce)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PROTOVIEW_INTERFACE", "wlan0")
	t.Setenv("PROTOVIEW_TSHARK", "/opt/bin/tshark")
	t.Setenv("PROTOVIEW_DISPLAY_BINARY_PAYLOAD", "true")
	t.Setenv("PROTOVIEW_TELEMETRY_ENDPOINT", "collector:4317")

	m := NewManager()
	m.loadEnv()

	c := m.Get()
	if c.Capture.Interface != "wlan0" {
		t.Errorf("Interface = %q", c.Capture.Interface)
	}
	if c.Analyze.Tshark != "/opt/bin/tshark" {
		t.Errorf("Tshark = %q", c.Analyze.Tshark)
	}
	if !c.Analyze.DisplayBinaryPayload {
		t.Error("DisplayBinaryPayload not set from env")
	}
	if !c.Telemetry.Enabled || c.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("Telemetry = %+v", c.Telemetry)
	}
}

func TestLoad_MalformedFileSurfaces(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, ".protoview.yaml"), []byte("capture: ["), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(); err == nil {
		t.Fatal("Load must surface a malformed config file")
	}
	// The manager still holds usable defaults after the failure.
	if m.Get().Capture.Interface != "lo" {
		t.Errorf("Interface = %q, want default lo", m.Get().Capture.Interface)
	}
}

func TestLoad_ValidProjectFileMerged(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	chdir(t, dir)

	yaml := "capture:\n  interface: eth1\n"
	if err := os.WriteFile(filepath.Join(dir, ".protoview.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Capture.Interface != "eth1" {
		t.Errorf("Interface = %q, want eth1", m.Get().Capture.Interface)
	}
}

func TestLoadEnv_BadBoolIgnored(t *testing.T) {
	t.Setenv("PROTOVIEW_DISPLAY_BINARY_PAYLOAD", "maybe")

	m := NewManager()
	m.loadEnv()
	if m.Get().Analyze.DisplayBinaryPayload {
		t.Error("unparseable bool must leave the default")
	}
}
