package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB0
  timeout_ms: 2000
wheels:
  A:
    filters: [DAPI, GFP, RFP, Cy5]
defaults:
  move_speed: 5
  debug_level: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("port = %q", cfg.Serial.Port)
	}
	if cfg.Serial.BaudRate != 128000 {
		t.Errorf("baud_rate default = %d, want 128000", cfg.Serial.BaudRate)
	}
	if cfg.Timeout() != 2*time.Second {
		t.Errorf("Timeout() = %v, want 2s", cfg.Timeout())
	}
	if cfg.Defaults.MoveSpeed != 5 {
		t.Errorf("move_speed = %d, want 5", cfg.Defaults.MoveSpeed)
	}
	if got := cfg.FilterName("A", 1); got != "GFP" {
		t.Errorf("FilterName(A, 1) = %q, want GFP", got)
	}
	if got := cfg.FilterName("A", 9); got != "" {
		t.Errorf("FilterName(A, 9) = %q, want empty", got)
	}
	if got := cfg.FilterName("B", 0); got != "" {
		t.Errorf("FilterName(B, 0) = %q, want empty", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
defaults:
  mock_serial: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.BaudRate != 128000 || cfg.Serial.TimeoutMs != 5000 {
		t.Errorf("serial defaults = %+v", cfg.Serial)
	}
	if cfg.Defaults.MoveSpeed != 6 {
		t.Errorf("move_speed default = %d, want 6", cfg.Defaults.MoveSpeed)
	}
}

func TestLoad_PortRequiredWithoutMock(t *testing.T) {
	path := writeConfig(t, `
defaults:
  debug_level: 1
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing port without mock_serial")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"speed out of range", "serial: {port: COM1}\ndefaults: {move_speed: 9}"},
		{"debug out of range", "serial: {port: COM1}\ndefaults: {debug_level: 7}"},
		{"unknown wheel", "serial: {port: COM1}\nwheels: {C: {filters: [x]}}"},
		{"too many filters", "serial: {port: COM1}\nwheels: {A: {filters: [a,b,c,d,e,f,g,h,i,j,k]}}"},
		{"bad yaml", "serial: [not a map"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	if err := ValidateConfigPath(filepath.Join("configs", "default.yaml")); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd.yaml",
		"configs/../../../etc/shadow.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}
