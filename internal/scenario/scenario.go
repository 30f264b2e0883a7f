// Package scenario scripts practice runs: robots follow waypoints, batteries
// drain and target reports are sent at fixed simulated times.
package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-referee/internal/telemetry"
)

// DefaultStepSec is the frame step used when a scenario leaves it out.
const DefaultStepSec = 1.0

// Scenario defines a scripted run.
type Scenario struct {
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	StepSec     float64  `yaml:"step_seconds,omitempty"`
	DurationSec float64  `yaml:"duration_seconds"`
	Robots      []Robot  `yaml:"robots"`
	Reports     []Report `yaml:"reports,omitempty"`
}

// Robot moves through its waypoints in order. Before the first waypoint it
// holds the first position, after the last it holds the last.
type Robot struct {
	Name      string     `yaml:"name"`
	Waypoints []Waypoint `yaml:"waypoints"`
	// BatteryEmptyAtSec drains the battery to zero at that time.
	BatteryEmptyAtSec *float64 `yaml:"battery_empty_at_seconds,omitempty"`
}

// Waypoint pins a robot position at a simulated time.
type Waypoint struct {
	AtSec    float64            `yaml:"at_seconds"`
	Position telemetry.Position `yaml:"position"`
}

// Report is a target report sent at a simulated time.
type Report struct {
	AtSec  float64  `yaml:"at_seconds"`
	Fields []string `yaml:"fields"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the scenario can be played.
func (s *Scenario) Validate() error {
	if s.DurationSec <= 0 {
		return fmt.Errorf("scenario %q: duration_seconds must be positive", s.Name)
	}
	if s.StepSec < 0 {
		return fmt.Errorf("scenario %q: step_seconds must not be negative", s.Name)
	}
	for _, r := range s.Robots {
		if r.Name == "" {
			return fmt.Errorf("scenario %q: robot without name", s.Name)
		}
		if len(r.Waypoints) == 0 {
			return fmt.Errorf("scenario %q: robot %s has no waypoints", s.Name, r.Name)
		}
		if !sort.SliceIsSorted(r.Waypoints, func(i, j int) bool { return r.Waypoints[i].AtSec < r.Waypoints[j].AtSec }) {
			return fmt.Errorf("scenario %q: robot %s waypoints are not in time order", s.Name, r.Name)
		}
	}
	return nil
}

// PositionAt interpolates the robot position at t seconds.
func (r Robot) PositionAt(t float64) telemetry.Position {
	wps := r.Waypoints
	if t <= wps[0].AtSec {
		return wps[0].Position
	}
	for i := 1; i < len(wps); i++ {
		a, b := wps[i-1], wps[i]
		if t > b.AtSec {
			continue
		}
		span := b.AtSec - a.AtSec
		if span <= 0 {
			return b.Position
		}
		f := (t - a.AtSec) / span
		return telemetry.Position{
			X: a.Position.X + (b.Position.X-a.Position.X)*f,
			Y: a.Position.Y + (b.Position.Y-a.Position.Y)*f,
			Z: a.Position.Z + (b.Position.Z-a.Position.Z)*f,
		}
	}
	return wps[len(wps)-1].Position
}

// BatteryAt returns the battery percentage at t seconds.
func (r Robot) BatteryAt(t float64) float64 {
	if r.BatteryEmptyAtSec != nil && t >= *r.BatteryEmptyAtSec {
		return 0
	}
	return 100
}

// Player plays a scenario as a sequence of frames. It satisfies the frame
// source the harness consumes.
type Player struct {
	s       *Scenario
	step    float64
	n       int
	reports []Report
}

// NewPlayer starts playback at simulated time zero.
func NewPlayer(s *Scenario) *Player {
	step := s.StepSec
	if step == 0 {
		step = DefaultStepSec
	}
	reports := append([]Report(nil), s.Reports...)
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].AtSec < reports[j].AtSec })
	return &Player{s: s, step: step, reports: reports}
}

// Next returns the next frame, or io.EOF once the scenario duration is over.
// Each report is carried by the first frame at or after its time.
func (p *Player) Next(ctx context.Context) (telemetry.Frame, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Frame{}, err
	}
	t := float64(p.n) * p.step
	if t > p.s.DurationSec {
		return telemetry.Frame{}, io.EOF
	}
	p.n++

	frame := telemetry.Frame{SimTime: time.Duration(t * float64(time.Second))}
	for _, r := range p.s.Robots {
		pos := r.PositionAt(t)
		battery := r.BatteryAt(t)
		frame.Robots = append(frame.Robots, telemetry.RobotState{Name: r.Name, Position: &pos, Battery: &battery})
	}
	for len(p.reports) > 0 && p.reports[0].AtSec <= t {
		frame.Reports = append(frame.Reports, p.reports[0].Fields)
		p.reports = p.reports[1:]
	}
	return frame, nil
}

// Close implements io.Closer.
func (p *Player) Close() error { return nil }
