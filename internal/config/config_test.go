package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
run_duration_seconds: 1800
setup_duration_seconds: 60
logging:
  path: /tmp/referee-run
geofence:
  center: {x: 0, y: 0, z: 0}
  size: {x: 100, y: 200, z: 50}
targets:
  - vessel: shipA
    small_objects: [buoy1, buoy2]
    large_objects: [crate]
  - small_objects: [orphan]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "competition.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML), "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.RunDuration() != 30*time.Minute {
		t.Errorf("unexpected run duration %v", cfg.RunDuration())
	}
	if cfg.SetupDuration() != time.Minute {
		t.Errorf("unexpected setup duration %v", cfg.SetupDuration())
	}
	if cfg.LogPath() != "/tmp/referee-run" {
		t.Errorf("unexpected log path %q", cfg.LogPath())
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Vessel != "shipA" {
		t.Fatalf("expected target without vessel to be dropped, got %+v", cfg.Targets)
	}
	if len(cfg.Targets[0].SmallObjects) != 2 || cfg.Targets[0].LargeObjects[0] != "crate" {
		t.Errorf("unexpected target objects: %+v", cfg.Targets[0])
	}
	outer, inner, ok := cfg.Boundary()
	if !ok {
		t.Fatalf("expected geofence")
	}
	if outer.Max.X != 50 || outer.Min.Y != -100 {
		t.Errorf("unexpected outer box %+v", outer)
	}
	if inner.Max.X != 50-GeofenceBuffer || inner.Min.Y != -100+GeofenceBuffer {
		t.Errorf("unexpected inner box %+v", inner)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "targets: []\n"), "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.RunDuration() != DefaultRunDurationSec*time.Second || cfg.SetupDuration() != DefaultSetupDurationSec*time.Second {
		t.Errorf("defaults not applied: %v %v", cfg.RunDuration(), cfg.SetupDuration())
	}
	if _, _, ok := cfg.Boundary(); ok {
		t.Errorf("expected no geofence")
	}
}

func TestLoadConfig_UnboundedRun(t *testing.T) {
	cfg, err := Load(writeConfig(t, "run_duration_seconds: 0\n"), "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.RunDuration() != 0 {
		t.Errorf("expected unbounded run, got %v", cfg.RunDuration())
	}
}

func TestLoadConfig_IncompleteGeofenceDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, "geofence:\n  center: {x: 1, y: 2, z: 3}\n"), "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if _, _, ok := cfg.Boundary(); ok {
		t.Errorf("expected geofence without size to be ignored")
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	cases := map[string]string{
		"negative duration": "run_duration_seconds: -5\n",
		"string duration":   "setup_duration_seconds: soon\n",
		"bad vector":        "geofence:\n  center: {x: 1, y: 2}\n  size: {x: 1, y: 1, z: 1}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body), ""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost")
	t.Setenv("REFEREE_TICK", "250ms")
	s, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if s.GreptimeEndpoint != "localhost" || s.GreptimeDatabase != "public" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.Tick != 250*time.Millisecond || s.AdminAddr != ":8080" {
		t.Errorf("unexpected settings: %+v", s)
	}
}
