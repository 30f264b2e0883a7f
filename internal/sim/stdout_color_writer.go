// ColorStdoutWriter prints human-friendly, colorized referee output to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"

	"droneops-referee/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var phaseColors = map[string]string{
	telemetry.PhaseSetup:    colorYellow,
	telemetry.PhaseRun:      colorGreen,
	telemetry.PhaseFinished: colorRed,
}

// ColorStdoutWriter prints clock, score and event rows using ANSI colors.
type ColorStdoutWriter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{out: os.Stdout}
}

func (w *ColorStdoutWriter) println(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, line)
}

// WriteClock prints phase changes only.
func (w *ColorStdoutWriter) WriteClock(row telemetry.ClockRow) error {
	w.mu.Lock()
	changed := row.Phase != w.last
	w.last = row.Phase
	w.mu.Unlock()
	if !changed {
		return nil
	}
	w.println(fmt.Sprintf("%sPHASE%s %s%s%s %s%ds%s",
		colorBlue, colorReset,
		phaseColors[row.Phase], row.Phase, colorReset,
		colorCyan, row.Seconds, colorReset))
	return nil
}

// WriteScore prints the current score.
func (w *ColorStdoutWriter) WriteScore(row telemetry.ScoreRow) error {
	w.println(fmt.Sprintf("%sSCORE%s %s%s%s %spenalty=%s%s",
		colorBlue, colorReset,
		colorMagenta, formatScore(row.Score), colorReset,
		colorGray, formatScore(float64(row.TimePenalty)), colorReset))
	return nil
}

// WriteEvent prints a journal event.
func (w *ColorStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	line := fmt.Sprintf("%sEVENT%s %s#%d%s %s%s%s %st=%ds%s",
		colorBlue, colorReset,
		colorGray, e.ID, colorReset,
		colorYellow, e.Type, colorReset,
		colorCyan, e.TimeSec, colorReset)
	if e.Data != "" {
		line += " " + e.Data
	}
	w.println(line)
	return nil
}
