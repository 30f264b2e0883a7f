package referee

import (
	"time"

	"droneops-referee/internal/target"
)

// RobotStatus is the referee view of one robot.
type RobotStatus struct {
	Name        string `json:"name"`
	Inside      bool   `json:"inside_boundary"`
	Exits       int    `json:"boundary_exits"`
	DeadBattery bool   `json:"dead_battery"`
}

// Status is a point in time view of the run.
type Status struct {
	RunID          string            `json:"run_id"`
	State          string            `json:"state"`
	SimTime        time.Duration     `json:"sim_time_ns"`
	ElapsedSim     time.Duration     `json:"elapsed_sim_ns"`
	ElapsedReal    time.Duration     `json:"elapsed_real_ns"`
	Score          float64           `json:"score"`
	TimePenalty    int               `json:"time_penalty"`
	Events         int               `json:"events"`
	PendingReports int               `json:"pending_reports"`
	Robots         []RobotStatus     `json:"robots"`
	Targets        []target.Progress `json:"targets"`
}

// Status returns the current run status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		RunID:   c.runID,
		State:   c.state.String(),
		SimTime: c.simTime,
	}
	st.ElapsedSim, st.ElapsedReal = c.elapsedLocked(c.simTime, c.now())
	names := append([]string(nil), c.robots...)
	dead := make(map[string]bool, len(c.deadBatteries))
	for n := range c.deadBatteries {
		dead[n] = true
	}
	c.mu.Unlock()

	snap := c.recorder.Current()
	st.Score = snap.Score
	st.TimePenalty = c.ledger.Total()
	st.Events = c.events.Count()
	st.PendingReports = c.queue.Len()
	st.Targets = c.registry.Progress()
	for _, n := range names {
		rs := RobotStatus{Name: n, Inside: true, DeadBattery: dead[n]}
		if c.monitor != nil {
			if b, ok := c.monitor.Status(n); ok {
				rs.Inside, rs.Exits = b.Inside, b.Exits
			}
		}
		st.Robots = append(st.Robots, rs)
	}
	return st
}
