// Package referee runs the competition lifecycle and ties scoring together.
package referee

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"droneops-referee/internal/boundary"
	"droneops-referee/internal/config"
	"droneops-referee/internal/events"
	"droneops-referee/internal/logging"
	"droneops-referee/internal/metrics"
	"droneops-referee/internal/penalty"
	"droneops-referee/internal/report"
	"droneops-referee/internal/score"
	"droneops-referee/internal/target"
	"droneops-referee/internal/telemetry"
)

// StartGateDistance is how far a robot may move from its initial position
// before the run starts on its own.
const StartGateDistance = 5.0

// DefaultLogDir is used when neither the config nor the options name a run directory.
const DefaultLogDir = "referee-logs"

// Pauser pauses the host simulation.
type Pauser interface {
	Pause()
}

// ClockWriter publishes the phase clock.
type ClockWriter interface {
	WriteClock(telemetry.ClockRow) error
}

// ScoreWriter publishes the current score.
type ScoreWriter interface {
	WriteScore(telemetry.ScoreRow) error
}

// Options configure a Controller. Zero values select defaults.
type Options struct {
	// LogDir overrides the configured run directory.
	LogDir string
	RunID  string
	Pauser Pauser
	Clock  ClockWriter
	Score  ScoreWriter
	Events events.Mirror
	// ScoreInterval is the score publishing period, 1s by default.
	ScoreInterval time.Duration
	Now           func() time.Time
}

// Controller owns the run state machine. All exported methods are safe for
// concurrent use.
type Controller struct {
	runID         string
	dir           string
	runDuration   time.Duration
	setupDuration time.Duration
	now           func() time.Time

	simLog    *logging.SimLog
	events    *events.Log
	recorder  *score.Recorder
	ledger    *penalty.Ledger
	registry  *target.Registry
	queue     *report.Queue
	validator *report.Validator
	monitor   *boundary.Monitor

	clockPub      ClockWriter
	scorePub      ScoreWriter
	clockLimit    *rate.Limiter
	refreshLimit  *rate.Limiter
	scoreInterval time.Duration

	// lifecycle serializes Start and Finish so their events never interleave.
	lifecycle sync.Mutex

	mu            sync.Mutex
	state         State
	started       bool
	simTime       time.Duration
	startSim      time.Duration
	startWall     time.Time
	endSim        time.Duration
	endWall       time.Time
	robots        []string
	initialPos    map[string]telemetry.Position
	deadBatteries map[string]struct{}
	pauser        Pauser
	refreshSeq    uint64

	done      chan struct{}
	doneOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open creates the run directory and its files, writes the initial score
// files and starts the score publisher. Failing to open the files is fatal.
func Open(cfg *config.CompetitionConfig, opts Options) (*Controller, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.LogDir
	if dir == "" {
		dir = cfg.LogPath()
	}
	if dir == "" {
		dir = DefaultLogDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	logName := fmt.Sprintf("referee_%s.log", now().UTC().Format("2006-01-02T15-04-05"))
	simLog, err := logging.OpenSimLog(filepath.Join(dir, logName))
	if err != nil {
		return nil, err
	}
	evLog, err := events.Open(filepath.Join(dir, "events.yml"), simLog)
	if err != nil {
		simLog.Close()
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	interval := opts.ScoreInterval
	if interval <= 0 {
		interval = time.Second
	}

	c := &Controller{
		runID:         runID,
		dir:           dir,
		runDuration:   cfg.RunDuration(),
		setupDuration: cfg.SetupDuration(),
		now:           now,
		simLog:        simLog,
		events:        evLog,
		recorder:      score.NewRecorder(dir),
		ledger:        penalty.NewLedger(),
		registry:      target.NewRegistry(cfg.Targets),
		queue:         &report.Queue{},
		clockPub:      opts.Clock,
		scorePub:      opts.Score,
		clockLimit:    rate.NewLimiter(rate.Every(time.Second), 1),
		refreshLimit:  rate.NewLimiter(rate.Every(time.Second), 1),
		scoreInterval: interval,
		initialPos:    make(map[string]telemetry.Position),
		deadBatteries: make(map[string]struct{}),
		pauser:        opts.Pauser,
		done:          make(chan struct{}),
	}
	h := hooks{c}
	c.validator = report.NewValidator(c.queue, c.registry, c.ledger, evLog, h)
	if outer, inner, ok := cfg.Boundary(); ok {
		c.monitor = boundary.NewMonitor(outer, inner, c.ledger, evLog, h)
	}
	evLog.SetSource(h)
	evLog.SetRunID(runID)
	if opts.Events != nil {
		evLog.SetMirror(opts.Events)
	}

	metrics.SetRunState(StateInit.String())
	slog.Info("referee initialized",
		"run_id", runID,
		"dir", dir,
		"targets", c.registry.Len(),
		"boundary", c.monitor != nil)
	c.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.publishScores(ctx)
	return c, nil
}

// RunID returns the unique id of this run.
func (c *Controller) RunID() string { return c.runID }

// Dir returns the run directory.
func (c *Controller) Dir() string { return c.dir }

// Done is closed once the run is finished.
func (c *Controller) Done() <-chan struct{} { return c.done }

// SetPauser replaces the host pause hook.
func (c *Controller) SetPauser(p Pauser) {
	c.mu.Lock()
	c.pauser = p
	c.mu.Unlock()
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins scoring. It returns true only for the call that moved the
// run to Running. Score files are refreshed either way.
func (c *Controller) Start(simTime time.Duration) bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	ok := !c.started && c.state != StateFinished
	if ok {
		c.started = true
		c.state = StateRunning
		c.startSim = simTime
		c.startWall = c.now()
		c.advanceLocked(simTime)
	}
	c.mu.Unlock()

	if ok {
		slog.Info("scoring has started", "run_id", c.runID, "sim_time", simTime)
		metrics.SetRunState(StateRunning.String())
		c.simLog.Printf(simTime, "scoring_started")
		c.events.LogEvent("started", "")
	}
	c.refreshAt(simTime)
	return ok
}

// Finish ends the run. The host is always asked to pause; everything else
// happens only on the first call.
func (c *Controller) Finish(simTime time.Duration) {
	c.finish(simTime, true)
}

func (c *Controller) finish(simTime time.Duration, pause bool) bool {
	if pause {
		c.mu.Lock()
		p := c.pauser
		c.mu.Unlock()
		if p != nil {
			p.Pause()
		}
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state == StateFinished {
		c.mu.Unlock()
		return false
	}
	c.advanceLocked(simTime)
	c.endSim = c.simTime
	c.endWall = c.now()
	c.state = StateFinished
	simElapsed, realElapsed := c.elapsedLocked(c.simTime, c.endWall)
	c.mu.Unlock()

	snap := c.refresh()
	slog.Info("scoring has finished",
		"run_id", c.runID,
		"elapsed_real", realElapsed,
		"elapsed_sim", simElapsed,
		"score", snap.Score)
	metrics.SetRunState(StateFinished.String())
	c.simLog.Printf(simTime, "finished_elapsed_real_time %d s.", int64(realElapsed/time.Second))
	c.simLog.Printf(simTime, "finished_elapsed_sim_time %d s.", int64(simElapsed/time.Second))
	c.simLog.Printf(simTime, "finished_score %v", snap.Score)
	c.simLog.Printf(simTime, "time_penalty %d", snap.Penalty)
	if err := c.simLog.Sync(); err != nil {
		slog.Warn("failed to sync run log", "error", err)
	}
	c.events.LogEvent("finished", "")

	c.doneOnce.Do(func() { close(c.done) })
	return true
}

// StartRequest handles an external start request.
func (c *Controller) StartRequest(flag bool) bool {
	if !flag {
		return false
	}
	return c.Start(c.SimTime())
}

// FinishRequest handles an external finish request. It is honored only
// after the run started and returns true if this call finished the run.
func (c *Controller) FinishRequest(flag bool) bool {
	c.mu.Lock()
	ok := flag && c.started && c.state != StateFinished
	simTime := c.simTime
	c.mu.Unlock()
	if !ok {
		return false
	}
	slog.Info("user triggered finish", "run_id", c.runID)
	c.simLog.Printf(simTime, "User triggered finish.")
	return c.finish(simTime, true)
}

// ReportTargets queues a target report for the next tick. It always
// returns true.
func (c *Controller) ReportTargets(fields []string) bool {
	c.queue.Enqueue(fields)
	return true
}

// OnBattery handles a battery state message. A robot whose battery is
// empty is journaled once as dead_battery.
func (c *Controller) OnBattery(topic string, percentage float64) {
	if percentage > 0 {
		return
	}
	name := RobotFromTopic(topic)
	c.mu.Lock()
	_, seen := c.deadBatteries[name]
	if !seen {
		c.deadBatteries[name] = struct{}{}
	}
	c.mu.Unlock()
	if !seen {
		c.events.LogEvent("dead_battery", name)
	}
}

// Shutdown finishes the run without pausing the host, stops the score
// publisher and closes the run files.
func (c *Controller) Shutdown() error {
	c.finish(c.SimTime(), false)
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		if cerr := c.events.Close(); cerr != nil {
			err = cerr
		}
		if cerr := c.simLog.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// SimTime returns the latest simulated time seen.
func (c *Controller) SimTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simTime
}

// Score returns the last computed score snapshot.
func (c *Controller) Score() score.Snapshot {
	return c.recorder.Current()
}

// advanceLocked moves the latest simulated time forward.
func (c *Controller) advanceLocked(simTime time.Duration) {
	if simTime > c.simTime {
		c.simTime = simTime
	}
}

// elapsedLocked returns elapsed sim and real time since Start. After Finish
// the values are frozen at the finish instant.
func (c *Controller) elapsedLocked(simTime time.Duration, wall time.Time) (sim, real time.Duration) {
	if !c.started {
		return 0, 0
	}
	if c.state == StateFinished {
		simTime, wall = c.endSim, c.endWall
	}
	return simTime - c.startSim, wall.Sub(c.startWall)
}

func (c *Controller) refresh() score.Snapshot {
	return c.refreshAt(c.SimTime())
}

func (c *Controller) refreshAt(simTime time.Duration) score.Snapshot {
	c.mu.Lock()
	simElapsed, realElapsed := c.elapsedLocked(simTime, c.now())
	c.refreshSeq++
	stats := score.Stats{
		Started:     c.started,
		SimElapsed:  simElapsed,
		RealElapsed: realElapsed,
		ModelCount:  len(c.robots),
		Penalty:     c.ledger.Total(),
		Seq:         c.refreshSeq,
	}
	c.mu.Unlock()

	snap, err := c.recorder.Refresh(stats)
	if err != nil {
		slog.Error("failed to update score files", "dir", c.dir, "error", err)
	}
	return snap
}

// hooks adapts the controller to the collaborator interfaces of the
// validator, the boundary monitor and the event log.
type hooks struct{ c *Controller }

func (h hooks) RefreshScore() { h.c.refresh() }

func (h hooks) ForceFinish() { h.c.Finish(h.c.SimTime()) }

func (h hooks) EventContext() events.Context {
	c := h.c
	c.mu.Lock()
	simTime := c.simTime
	simElapsed, realElapsed := c.elapsedLocked(simTime, c.now())
	c.mu.Unlock()
	return events.Context{
		SimTime:     simTime,
		ElapsedReal: realElapsed,
		ElapsedSim:  simElapsed,
		Score:       score.Compute(simElapsed, c.ledger.Total()),
	}
}
