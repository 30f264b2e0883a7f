// Package boundary tracks robots against the competition geofence.
package boundary

import (
	"log/slog"
	"sync"

	"droneops-referee/internal/metrics"
	"droneops-referee/internal/penalty"
	"droneops-referee/internal/telemetry"
)

// EventLogger journals boundary events.
type EventLogger interface {
	LogEvent(typ, data string) telemetry.EventRow
}

// RunHooks lets the monitor drive the run after a penalty.
type RunHooks interface {
	RefreshScore()
	ForceFinish()
}

// Status is the boundary state of one robot.
type Status struct {
	Inside bool `json:"inside"`
	Exits  int  `json:"exits"`
}

// Monitor applies geofence hysteresis. A robot that is inside is checked
// against the outer box; once outside it has to come back inside the inner
// box before it counts as inside again.
type Monitor struct {
	outer, inner telemetry.Box
	ledger       *penalty.Ledger
	events       EventLogger
	hooks        RunHooks

	mu     sync.Mutex
	status map[string]*Status
}

// NewMonitor returns a monitor for the given boxes.
func NewMonitor(outer, inner telemetry.Box, ledger *penalty.Ledger, events EventLogger, hooks RunHooks) *Monitor {
	return &Monitor{
		outer:  outer,
		inner:  inner,
		ledger: ledger,
		events: events,
		hooks:  hooks,
		status: make(map[string]*Status),
	}
}

// Check evaluates every robot once. It returns true when a terminal boundary
// penalty forced the run to finish; remaining robots are not checked then.
func (m *Monitor) Check(robots []telemetry.RobotState) bool {
	for _, r := range robots {
		if !m.exited(r) {
			continue
		}
		metrics.BoundaryExits.WithLabelValues(r.Name).Inc()
		out := m.ledger.Apply(penalty.Boundary, "")
		if !out.Terminal {
			m.hooks.RefreshScore()
			m.events.LogEvent("exceed_boundary_1", r.Name)
			continue
		}
		m.events.LogEvent("exceed_boundary_2", r.Name)
		m.hooks.ForceFinish()
		return true
	}
	return false
}

// exited updates the robot status and reports an inside to outside transition.
func (m *Monitor) exited(r telemetry.RobotState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[r.Name]
	if !ok {
		st = &Status{Inside: true}
		m.status[r.Name] = st
	}
	box := m.inner
	if st.Inside {
		box = m.outer
	}
	in := false
	if r.Position == nil {
		slog.Error("robot has no position, treating it as outside the boundary", "robot", r.Name)
	} else {
		in = box.Contains(*r.Position)
	}
	if in == st.Inside {
		return false
	}
	st.Inside = in
	if in {
		return false
	}
	st.Exits++
	return true
}

// Status returns a copy of the robot's boundary status.
func (m *Monitor) Status(name string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[name]
	if !ok {
		return Status{}, false
	}
	return *st, true
}
