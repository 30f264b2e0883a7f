package main

import (
	"os"

	"golang.org/x/term"

	"droneops-referee/internal/config"
	"droneops-referee/internal/events"
	"droneops-referee/internal/sim"
	"droneops-referee/internal/telemetry"
)

// writerOptions select the output streams of a run.
type writerOptions struct {
	RunID     string
	PrintOnly bool
	Color     bool
	LogFile   string
}

// scoreboard reports whether the terminal scoreboard owns stdout.
func (o writerOptions) scoreboard() bool {
	return !o.PrintOnly && !o.Color && isTerminal()
}

// isTerminal reports whether stdout is attached to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newWriters sets up the clock, score and event writers based on flags and
// settings. It returns the writer and a cleanup function to close any resources.
func newWriters(settings config.Settings, opts writerOptions) (sim.Writer, func(), error) {
	var ws []sim.Writer
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	switch {
	case opts.scoreboard():
		tw := sim.NewTUIWriter(opts.RunID)
		ws = append(ws, tw)
		closers = append(closers, tw.Close)
	case opts.PrintOnly || !isTerminal():
		ws = append(ws, sim.NewJSONStdoutWriter())
	default:
		ws = append(ws, sim.NewColorStdoutWriter())
	}

	if settings.GreptimeEndpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(settings.GreptimeEndpoint, settings.GreptimeDatabase)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ws = append(ws, gw)
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile, opts.LogFile+".clock", opts.LogFile+".events")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ws = append(ws, fw)
		closers = append(closers, fw.Close)
	}

	if len(ws) == 1 {
		return ws[0], cleanup, nil
	}
	return sim.NewMultiWriter(ws...), cleanup, nil
}

// eventTee forwards every event to several mirrors. A failing mirror does
// not stop the others.
type eventTee []events.Mirror

func (t eventTee) WriteEvent(row telemetry.EventRow) error {
	var first error
	for _, m := range t {
		if err := m.WriteEvent(row); err != nil && first == nil {
			first = err
		}
	}
	return first
}
