package sim

import (
	"droneops-referee/internal/telemetry"
)

// MultiWriter fan-outs clock, score and event rows to multiple writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteClock sends a clock row to all writers.
func (mw *MultiWriter) WriteClock(row telemetry.ClockRow) error {
	for _, w := range mw.writers {
		if err := w.WriteClock(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteScore sends a score row to all writers.
func (mw *MultiWriter) WriteScore(row telemetry.ScoreRow) error {
	for _, w := range mw.writers {
		if err := w.WriteScore(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent sends an event row to all writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.writers {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple events to all writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetAdminStatus forwards admin status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
