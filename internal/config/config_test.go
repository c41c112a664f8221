package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/hos-tracker/internal/config"
)

func TestLoadFileFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.Auth.ReadyTimeout != 5*time.Second {
		t.Errorf("ReadyTimeout = %v, want 5s", cfg.Auth.ReadyTimeout)
	}
	if cfg.Storage.Driver != config.DriverFile {
		t.Errorf("Driver = %q, want file", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != filepath.Join(dir, "tokens.json") {
		t.Errorf("Path = %q", cfg.Storage.Path)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// The generated template must load cleanly on the second run.
	again, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile on template: %v", err)
	}
	if again.API.Timeout != 30*time.Second || again.Storage.Driver != config.DriverFile {
		t.Errorf("template values = %+v", again)
	}
}

func TestLoadFileValuesAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `api:
  base_url: "https://file.example.com/"
  timeout: 10s
storage:
  driver: sqlite
display:
  timezone: "UTC"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HOS_API_URL", "https://env.example.com/")
	t.Setenv("HOS_LOG_LEVEL", "debug")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want env value without trailing slash", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s from file", cfg.API.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Storage.Path != filepath.Join(dir, "hos.db") {
		t.Errorf("Path = %q, want hos.db default for sqlite", cfg.Storage.Path)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()

	badDriver := filepath.Join(dir, "driver.yaml")
	if err := os.WriteFile(badDriver, []byte("storage:\n  driver: redis\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFile(badDriver); err == nil || !strings.Contains(err.Error(), "storage driver") {
		t.Errorf("bad driver: err = %v", err)
	}

	badTZ := filepath.Join(dir, "tz.yaml")
	if err := os.WriteFile(badTZ, []byte("display:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFile(badTZ); err == nil {
		t.Error("bad timezone: expected error")
	}
}

func TestDescribe(t *testing.T) {
	desc, err := config.Describe()
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	for _, name := range []string{"HOS_API_URL", "HOS_STORAGE_DRIVER", "HOS_TIMEZONE"} {
		if !strings.Contains(desc, name) {
			t.Errorf("Describe output missing %s", name)
		}
	}
}
