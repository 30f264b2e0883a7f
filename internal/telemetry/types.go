// Telemetry structs shared by the referee and its host adapters
package telemetry

import (
	"math"
	"os"
	"time"
)

// Position holds a world-frame position in meters.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns p shifted by d on every axis.
func (p Position) Add(d float64) Position {
	return Position{X: p.X + d, Y: p.Y + d, Z: p.Z + d}
}

// Distance returns the euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Box is an axis aligned bounding box.
type Box struct {
	Min Position `json:"min"`
	Max Position `json:"max"`
}

// BoxFromCenter builds a box from its center and full size.
func BoxFromCenter(center, size Position) Box {
	half := Position{X: size.X * 0.5, Y: size.Y * 0.5, Z: size.Z * 0.5}
	return Box{
		Min: Position{X: center.X - half.X, Y: center.Y - half.Y, Z: center.Z - half.Z},
		Max: Position{X: center.X + half.X, Y: center.Y + half.Y, Z: center.Z + half.Z},
	}
}

// Shrink returns the box moved inward by buffer on every face.
func (b Box) Shrink(buffer float64) Box {
	return Box{Min: b.Min.Add(buffer), Max: b.Max.Add(-buffer)}
}

// Contains reports whether p lies inside the box, faces included.
func (b Box) Contains(p Position) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// RobotState is the per-robot view the host engine hands over every step.
// Position is nil when the engine has no pose for the robot.
type RobotState struct {
	Name     string    `json:"name"`
	Position *Position `json:"position,omitempty"`
	Battery  *float64  `json:"battery,omitempty"`
}

// Frame is one simulation step as seen by the referee.
type Frame struct {
	SimTime time.Duration `json:"sim_time_ns"`
	Robots  []RobotState  `json:"robots"`
	Reports [][]string    `json:"reports,omitempty"`
}

// Run phases published on the clock stream.
const (
	PhaseSetup    = "setup"
	PhaseRun      = "run"
	PhaseFinished = "finished"
)

// ClockRow is the periodic phase/clock status.
type ClockRow struct {
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"`
	Seconds   int64     `json:"seconds"`
	Timestamp time.Time `json:"ts"`
}

// ScoreRow is the periodic score publication.
type ScoreRow struct {
	RunID       string    `json:"run_id"`
	Score       float64   `json:"score"`
	TimePenalty int       `json:"time_penalty"`
	Timestamp   time.Time `json:"ts"`
}

// ScoreTableName holds the table name used when writing scores to GreptimeDB.
// It defaults to "referee_score" but can be overridden via the
// GREPTIMEDB_SCORE_TABLE environment variable.
var ScoreTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_SCORE_TABLE"); env != "" {
		return env
	}
	return "referee_score"
}()

func (ScoreRow) TableName() string {
	return ScoreTableName
}

// EventRow is one journal entry. Elapsed values and the score are whole
// seconds, as written to events.yml.
type EventRow struct {
	RunID           string    `json:"run_id" yaml:"-"`
	ID              int       `json:"id" yaml:"id"`
	Type            string    `json:"type" yaml:"type"`
	TimeSec         int64     `json:"time_sec" yaml:"time_sec"`
	ElapsedRealTime int64     `json:"elapsed_real_time" yaml:"elapsed_real_time"`
	ElapsedSimTime  int64     `json:"elapsed_sim_time" yaml:"elapsed_sim_time"`
	TotalScore      int64     `json:"total_score" yaml:"total_score"`
	Data            string    `json:"data,omitempty" yaml:"data,omitempty"`
	Timestamp       time.Time `json:"ts" yaml:"-"`
}
