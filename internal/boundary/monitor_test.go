package boundary

import (
	"testing"

	"droneops-referee/internal/penalty"
	"droneops-referee/internal/telemetry"
)

type recorder struct {
	events    []telemetry.EventRow
	refreshes int
	finishes  int
}

func (r *recorder) LogEvent(typ, data string) telemetry.EventRow {
	row := telemetry.EventRow{ID: len(r.events), Type: typ, Data: data}
	r.events = append(r.events, row)
	return row
}

func (r *recorder) RefreshScore() { r.refreshes++ }
func (r *recorder) ForceFinish()  { r.finishes++ }

func newTestMonitor() (*Monitor, *recorder, *penalty.Ledger) {
	outer := telemetry.BoxFromCenter(telemetry.Position{}, telemetry.Position{X: 100, Y: 100, Z: 100})
	rec := &recorder{}
	l := penalty.NewLedger()
	return NewMonitor(outer, outer.Shrink(5), l, rec, rec), rec, l
}

func at(name string, x float64) telemetry.RobotState {
	return telemetry.RobotState{Name: name, Position: &telemetry.Position{X: x}}
}

func TestHysteresis(t *testing.T) {
	m, rec, l := newTestMonitor()

	// inside, then out past the outer face
	m.Check([]telemetry.RobotState{at("usv", 0)})
	m.Check([]telemetry.RobotState{at("usv", 51)})
	if len(rec.events) != 1 || rec.events[0].Type != "exceed_boundary_1" || rec.events[0].Data != "usv" {
		t.Fatalf("unexpected events %+v", rec.events)
	}
	if l.Total() != 300 || rec.refreshes != 1 {
		t.Fatalf("expected 300 penalty and one refresh, got %d / %d", l.Total(), rec.refreshes)
	}

	// oscillating between the outer face and the buffer zone never re-enters
	for _, x := range []float64{49, 51, 47, 52, 46} {
		m.Check([]telemetry.RobotState{at("usv", x)})
	}
	if len(rec.events) != 1 {
		t.Fatalf("buffer zone oscillation produced extra events: %+v", rec.events)
	}
	st, _ := m.Status("usv")
	if st.Inside || st.Exits != 1 {
		t.Fatalf("unexpected status %+v", st)
	}

	// back inside the inner box, then a genuine second exit is terminal
	m.Check([]telemetry.RobotState{at("usv", 44)})
	if st, _ := m.Status("usv"); !st.Inside {
		t.Fatalf("robot should be inside after crossing the inner box")
	}
	if !m.Check([]telemetry.RobotState{at("usv", 60)}) {
		t.Fatalf("second exit should finish the run")
	}
	if rec.events[1].Type != "exceed_boundary_2" || rec.finishes != 1 || l.Total() != penalty.Infinite {
		t.Fatalf("unexpected terminal state: %+v finishes=%d total=%d", rec.events, rec.finishes, l.Total())
	}
}

func TestViolationCounterIsGlobal(t *testing.T) {
	m, rec, _ := newTestMonitor()
	m.Check([]telemetry.RobotState{at("a", 0), at("b", 0)})
	finished := m.Check([]telemetry.RobotState{at("a", 80), at("b", 80)})
	if !finished {
		t.Fatalf("two robots exiting should reach the terminal tier")
	}
	if len(rec.events) != 2 || rec.events[0].Data != "a" || rec.events[1].Type != "exceed_boundary_2" || rec.events[1].Data != "b" {
		t.Fatalf("unexpected events %+v", rec.events)
	}
}

func TestMissingPositionCountsAsOutside(t *testing.T) {
	m, rec, _ := newTestMonitor()
	m.Check([]telemetry.RobotState{{Name: "uav"}})
	if len(rec.events) != 1 || rec.events[0].Type != "exceed_boundary_1" {
		t.Fatalf("unexpected events %+v", rec.events)
	}
	m.Check([]telemetry.RobotState{{Name: "uav"}})
	if len(rec.events) != 1 {
		t.Fatalf("staying outside must not add events")
	}
}

func TestFirstSeenOutside(t *testing.T) {
	m, rec, _ := newTestMonitor()
	m.Check([]telemetry.RobotState{at("usv", 200)})
	if len(rec.events) != 1 {
		t.Fatalf("robot first seen outside should count as an exit")
	}
}
