// Output writers and the frame harness that connect the referee to its host
package sim

import "droneops-referee/internal/telemetry"

// ClockWriter receives the periodic phase clock.
type ClockWriter interface {
	WriteClock(telemetry.ClockRow) error
}

// ScoreWriter receives the periodic score.
type ScoreWriter interface {
	WriteScore(telemetry.ScoreRow) error
}

// EventWriter receives every journaled event.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Writer handles all referee output streams.
type Writer interface {
	ClockWriter
	ScoreWriter
	EventWriter
}

// Optional: writers may support batch mode for events.
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}
