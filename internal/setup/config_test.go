package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ANDROID_SDK_ROOT", "")
	t.Setenv("ANDROID_HOME", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	base := filepath.Join(home, ".roost")
	if cfg.DevicesDir != filepath.Join(base, "devices") {
		t.Fatalf("DevicesDir = %q", cfg.DevicesDir)
	}
	if cfg.IndexPath != filepath.Join(base, "instances.db") {
		t.Fatalf("IndexPath = %q", cfg.IndexPath)
	}
	if cfg.MaxRAMMB <= 0 {
		t.Fatalf("MaxRAMMB = %d, want a positive default", cfg.MaxRAMMB)
	}
	if !strings.HasPrefix(cfg.ImagesDir, cfg.SDKRoot) {
		t.Fatalf("ImagesDir = %q, want a directory under SDKRoot %q", cfg.ImagesDir, cfg.SDKRoot)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	home := t.TempDir()
	sdk := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ROOST_SDK_ROOT", sdk)
	t.Setenv("ROOST_MAX_RAM_MB", "2048")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SDKRoot != sdk {
		t.Fatalf("SDKRoot = %q, want %q", cfg.SDKRoot, sdk)
	}
	if cfg.MaxRAMMB != 2048 {
		t.Fatalf("MaxRAMMB = %d, want 2048", cfg.MaxRAMMB)
	}
	if cfg.ImagesDir != filepath.Join(sdk, "system-images") {
		t.Fatalf("ImagesDir = %q, want derived from sdk root", cfg.ImagesDir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sdk_root: /opt/sdk
devices_dir: /srv/roost/devices
max_ram_mb: 4096
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SDKRoot != "/opt/sdk" {
		t.Fatalf("SDKRoot = %q, want %q", cfg.SDKRoot, "/opt/sdk")
	}
	if cfg.DevicesDir != "/srv/roost/devices" {
		t.Fatalf("DevicesDir = %q, want %q", cfg.DevicesDir, "/srv/roost/devices")
	}
	if cfg.MaxRAMMB != 4096 {
		t.Fatalf("MaxRAMMB = %d, want 4096", cfg.MaxRAMMB)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() error = nil, want error for missing explicit config file")
	}
}

func TestVerifyReportsMissingLocations(t *testing.T) {
	cfg := Config{
		SDKRoot:   filepath.Join(t.TempDir(), "missing-sdk"),
		ImagesDir: filepath.Join(t.TempDir(), "missing-images"),
	}

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "sdk root") {
		t.Fatalf("Verify() error = %v, want it to name the sdk root", err)
	}
}

func TestVerifyAcceptsExistingLocations(t *testing.T) {
	sdk := t.TempDir()
	images := filepath.Join(sdk, "system-images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if err := Verify(Config{SDKRoot: sdk, ImagesDir: images}); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}
