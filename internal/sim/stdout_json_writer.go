package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"droneops-referee/internal/telemetry"
)

// JSONStdoutWriter prints clock, score and event rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

type streamRow struct {
	Stream string `json:"stream"`
	Row    any    `json:"row"`
}

func (w *JSONStdoutWriter) print(stream string, row any) error {
	data, err := json.Marshal(streamRow{Stream: stream, Row: row})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteClock outputs a clock row in JSON format.
func (w *JSONStdoutWriter) WriteClock(row telemetry.ClockRow) error {
	return w.print("clock", row)
}

// WriteScore outputs a score row in JSON format.
func (w *JSONStdoutWriter) WriteScore(row telemetry.ScoreRow) error {
	return w.print("score", row)
}

// WriteEvent outputs a journal event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	return w.print("event", row)
}

// WriteEvents outputs multiple journal events in JSON format.
func (w *JSONStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := w.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}
