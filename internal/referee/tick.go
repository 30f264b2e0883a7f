package referee

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"droneops-referee/internal/logging"
	"droneops-referee/internal/metrics"
	"droneops-referee/internal/telemetry"
)

// BatteryTopic returns the battery state topic of a robot.
func BatteryTopic(robot string) string {
	return "/model/" + robot + "/battery/linear_battery/state"
}

// RobotFromTopic extracts the robot name from a /model/<name>/... topic.
func RobotFromTopic(topic string) string {
	parts := strings.FieldsFunc(topic, func(r rune) bool { return r == '/' })
	if len(parts) > 1 {
		return parts[1]
	}
	return "_unknown_"
}

// Tick advances the run by one simulation step.
func (c *Controller) Tick(ctx context.Context, frame telemetry.Frame) {
	log := logging.FromContext(ctx)
	begin := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(begin).Seconds()) }()

	c.mu.Lock()
	c.advanceLocked(frame.SimTime)
	if c.state == StateInit {
		c.state = StateSetup
		metrics.SetRunState(StateSetup.String())
	}
	var autoStart, movedOut bool
	if !c.started && c.state != StateFinished {
		c.registerLocked(frame.Robots)
		if frame.SimTime >= c.setupDuration {
			autoStart = true
		} else {
			movedOut = c.leftStartGateLocked(frame.Robots)
			autoStart = movedOut
		}
	}
	c.mu.Unlock()

	if autoStart {
		if movedOut {
			c.simLog.Printf(frame.SimTime, "Robot moved outside of start gate.")
		} else {
			log.Info("setup time elapsed", "setup_duration", c.setupDuration)
		}
		c.Start(frame.SimTime)
	}

	for _, r := range frame.Robots {
		if r.Battery != nil {
			c.OnBattery(BatteryTopic(r.Name), *r.Battery)
		}
	}

	if c.State() == StateRunning {
		c.judge(ctx, frame)
	}

	c.publishClock(ctx)

	if c.State() != StateFinished && c.refreshLimit.AllowN(c.now(), 1) {
		c.refreshAt(frame.SimTime)
	}
}

// judge runs boundary checks, report validation and the time limit.
func (c *Controller) judge(ctx context.Context, frame telemetry.Frame) {
	if c.monitor != nil && c.monitor.Check(c.tracked(frame.Robots)) {
		return
	}
	if c.validator.Process() {
		return
	}
	if c.runDuration == 0 {
		return
	}
	c.mu.Lock()
	elapsed := frame.SimTime - c.startSim
	c.mu.Unlock()
	if elapsed >= c.runDuration {
		logging.FromContext(ctx).Info("time limit reached", "run_duration", c.runDuration)
		c.Finish(frame.SimTime)
	}
}

// registerLocked records robots seen before the start with their initial position.
func (c *Controller) registerLocked(robots []telemetry.RobotState) {
	for _, r := range robots {
		if _, ok := c.initialPos[r.Name]; ok || r.Position == nil {
			continue
		}
		c.initialPos[r.Name] = *r.Position
		c.robots = append(c.robots, r.Name)
		slog.Debug("tracking robot", "robot", r.Name, "battery_topic", BatteryTopic(r.Name))
	}
}

func (c *Controller) leftStartGateLocked(robots []telemetry.RobotState) bool {
	for _, r := range robots {
		start, ok := c.initialPos[r.Name]
		if !ok || r.Position == nil {
			continue
		}
		if r.Position.Distance(start) > StartGateDistance {
			return true
		}
	}
	return false
}

// tracked returns the registered robots in registration order with their
// frame state. A registered robot absent from the frame has no position.
func (c *Controller) tracked(robots []telemetry.RobotState) []telemetry.RobotState {
	byName := make(map[string]telemetry.RobotState, len(robots))
	for _, r := range robots {
		byName[r.Name] = r
	}
	c.mu.Lock()
	names := append([]string(nil), c.robots...)
	c.mu.Unlock()

	out := make([]telemetry.RobotState, 0, len(names))
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			r = telemetry.RobotState{Name: n}
		}
		out = append(out, r)
	}
	return out
}

// Clock returns the current phase clock.
func (c *Controller) Clock() telemetry.ClockRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := telemetry.ClockRow{RunID: c.runID, Timestamp: c.now()}
	switch {
	case c.state == StateFinished:
		row.Phase = telemetry.PhaseFinished
	case c.started:
		row.Phase = telemetry.PhaseRun
		elapsed := c.simTime - c.startSim
		if c.runDuration == 0 {
			row.Seconds = int64(elapsed / time.Second)
		} else {
			row.Seconds = int64((c.runDuration - elapsed) / time.Second)
		}
	default:
		row.Phase = telemetry.PhaseSetup
		row.Seconds = int64((c.setupDuration - c.simTime) / time.Second)
	}
	if row.Seconds < 0 {
		row.Seconds = 0
	}
	return row
}

// publishClock writes the phase clock at most once per real second.
func (c *Controller) publishClock(ctx context.Context) {
	if c.clockPub == nil || !c.clockLimit.AllowN(c.now(), 1) {
		return
	}
	if err := c.clockPub.WriteClock(c.Clock()); err != nil {
		logging.FromContext(ctx).Warn("clock publish failed", "error", err)
	}
}

// publishScores publishes the last score snapshot every interval until the
// run is finished or ctx is cancelled.
func (c *Controller) publishScores(ctx context.Context) {
	defer c.wg.Done()
	if c.scorePub == nil {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		return
	}
	ticker := time.NewTicker(c.scoreInterval)
	defer ticker.Stop()
	for {
		c.publishScore()
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		case <-c.done:
			c.publishScore()
			return
		}
	}
}

func (c *Controller) publishScore() {
	snap := c.recorder.Current()
	row := telemetry.ScoreRow{
		RunID:       c.runID,
		Score:       snap.Score,
		TimePenalty: snap.Penalty,
		Timestamp:   c.now(),
	}
	if err := c.scorePub.WriteScore(row); err != nil {
		slog.Warn("score publish failed", "error", err)
	}
}
