// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"droneops-referee/internal/telemetry"
)

// Defaults applied when the config leaves a duration out.
const (
	DefaultRunDurationSec   = 3600
	DefaultSetupDurationSec = 600
	// GeofenceBuffer is how far the inner hysteresis box sits inside the geofence.
	GeofenceBuffer = 5.0
)

//go:embed competition.cue
var defaultSchema []byte

// Logging selects the run directory.
type Logging struct {
	Path string `yaml:"path"`
}

// Geofence is the competition boundary given as center and full size.
type Geofence struct {
	Center *telemetry.Position `yaml:"center"`
	Size   *telemetry.Position `yaml:"size"`
}

// Target lists a vessel and the objects that belong to it.
type Target struct {
	Vessel       string   `yaml:"vessel"`
	SmallObjects []string `yaml:"small_objects"`
	LargeObjects []string `yaml:"large_objects"`
}

// CompetitionConfig is the root configuration of a scored run.
type CompetitionConfig struct {
	RunDurationSec   *int      `yaml:"run_duration_seconds"`
	SetupDurationSec *int      `yaml:"setup_duration_seconds"`
	Logging          *Logging  `yaml:"logging"`
	Geofence         *Geofence `yaml:"geofence"`
	Targets          []Target  `yaml:"targets"`
}

// RunDuration returns the allowed run time. Zero means unbounded.
func (c *CompetitionConfig) RunDuration() time.Duration {
	if c.RunDurationSec == nil {
		return DefaultRunDurationSec * time.Second
	}
	return time.Duration(*c.RunDurationSec) * time.Second
}

// SetupDuration returns the setup window after which the run starts on its own.
func (c *CompetitionConfig) SetupDuration() time.Duration {
	if c.SetupDurationSec == nil {
		return DefaultSetupDurationSec * time.Second
	}
	return time.Duration(*c.SetupDurationSec) * time.Second
}

// LogPath returns the configured run directory, or "" when unset.
func (c *CompetitionConfig) LogPath() string {
	if c.Logging == nil {
		return ""
	}
	return c.Logging.Path
}

// Boundary returns the outer and inner geofence boxes. ok is false when no
// usable geofence is configured, in which case boundary enforcement is off.
func (c *CompetitionConfig) Boundary() (outer, inner telemetry.Box, ok bool) {
	if c.Geofence == nil || c.Geofence.Center == nil || c.Geofence.Size == nil {
		return telemetry.Box{}, telemetry.Box{}, false
	}
	outer = telemetry.BoxFromCenter(*c.Geofence.Center, *c.Geofence.Size)
	return outer, outer.Shrink(GeofenceBuffer), true
}

// Load loads YAML config and validates it against a CUE schema.
// An empty schema path selects the embedded schema.
func Load(configPath, cueSchemaPath string) (*CompetitionConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read YAML config: %w", err)
	}
	schema := defaultSchema
	if cueSchemaPath != "" {
		schema, err = os.ReadFile(cueSchemaPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	return Parse(configPath, data, schema)
}

// Parse validates raw YAML against schema and decodes it. Malformed
// sub-elements are logged and dropped rather than rejected.
func Parse(name string, data, schema []byte) (*CompetitionConfig, error) {
	if err := ValidateWithCue(name, data, schema); err != nil {
		return nil, err
	}
	var cfg CompetitionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.sanitize()

	slog.Info("loaded competition config",
		"run_duration", cfg.RunDuration(),
		"setup_duration", cfg.SetupDuration(),
		"targets", len(cfg.Targets))
	return &cfg, nil
}

func (c *CompetitionConfig) sanitize() {
	if c.Geofence != nil && (c.Geofence.Center == nil || c.Geofence.Size == nil) {
		slog.Error("geofence is missing center and size elements, boundary enforcement disabled")
		c.Geofence = nil
	}
	kept := c.Targets[:0]
	for _, t := range c.Targets {
		if t.Vessel == "" {
			slog.Error("target element must have a vessel, dropping it")
			continue
		}
		kept = append(kept, t)
	}
	c.Targets = kept
}

// ValidateWithCue validates YAML bytes using CUE schema bytes.
func ValidateWithCue(name string, yamlBytes, schemaBytes []byte) error {
	ctx := cuecontext.New()

	file, err := cueyaml.Extract(name, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if configVal.Err() != nil {
		return fmt.Errorf("cannot build YAML config: %w", configVal.Err())
	}

	schemaVal := ctx.CompileBytes(schemaBytes)
	if schemaVal.Err() != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", schemaVal.Err())
	}

	final := schemaVal.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
