// Package events implements the append-only run journal (events.yml).
package events

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-referee/internal/logging"
	"droneops-referee/internal/metrics"
	"droneops-referee/internal/telemetry"
)

// Context is the timing and score state attached to each entry.
// Elapsed values are zero before the run started.
type Context struct {
	SimTime     time.Duration
	ElapsedReal time.Duration
	ElapsedSim  time.Duration
	Score       float64
}

// Source provides the current Context.
type Source interface {
	EventContext() Context
}

// Mirror receives a copy of every logged entry.
type Mirror interface {
	WriteEvent(telemetry.EventRow) error
}

// Log numbers entries from 0 and appends them as YAML blocks. It is safe for
// concurrent use; ids are assigned and written under one lock so the file
// order matches id order.
type Log struct {
	mu     sync.Mutex
	out    io.Writer
	f      *os.File
	next   int
	simLog *logging.SimLog

	src    Source
	mirror Mirror
	runID  string
	now    func() time.Time
}

// New returns a Log writing to w. simLog may be nil.
func New(w io.Writer, simLog *logging.SimLog) *Log {
	return &Log{out: w, simLog: simLog, now: time.Now}
}

// Open creates (truncating) the journal file at path.
func Open(path string, simLog *logging.SimLog) (*Log, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open event journal: %w", err)
	}
	l := New(f, simLog)
	l.f = f
	return l, nil
}

// SetSource sets the timing and score provider. It must be called before
// concurrent use.
func (l *Log) SetSource(src Source) { l.src = src }

// SetMirror attaches a writer that receives every entry after it is journaled.
func (l *Log) SetMirror(m Mirror) { l.mirror = m }

// SetRunID tags mirrored rows with id.
func (l *Log) SetRunID(id string) { l.runID = id }

// LogEvent appends one entry. data is omitted from the block when empty.
func (l *Log) LogEvent(typ, data string) telemetry.EventRow {
	var c Context
	if l.src != nil {
		c = l.src.EventContext()
	}
	row := telemetry.EventRow{
		RunID:           l.runID,
		Type:            typ,
		TimeSec:         int64(c.SimTime / time.Second),
		ElapsedRealTime: int64(c.ElapsedReal / time.Second),
		ElapsedSimTime:  int64(c.ElapsedSim / time.Second),
		TotalScore:      int64(c.Score),
		Data:            data,
		Timestamp:       l.now(),
	}

	l.mu.Lock()
	row.ID = l.next
	l.next++
	block, err := encodeBlock(row)
	if err == nil {
		_, err = l.out.Write(block)
	}
	if err == nil && l.f != nil {
		err = l.f.Sync()
	}
	l.simLog.Printf(c.SimTime, "Logged Event:\n%s", block)
	l.mu.Unlock()

	if err != nil {
		slog.Error("failed to append event", "id", row.ID, "type", typ, "error", err)
	}
	metrics.EventsLogged.WithLabelValues(typ).Inc()
	if l.mirror != nil {
		if err := l.mirror.WriteEvent(row); err != nil {
			slog.Warn("event mirror write failed", "id", row.ID, "error", err)
		}
	}
	return row
}

// Count returns the number of entries logged so far.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Close closes the journal file if Open created it.
func (l *Log) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

type block struct {
	Event telemetry.EventRow `yaml:"event"`
}

func encodeBlock(row telemetry.EventRow) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode([]block{{Event: row}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a journal produced by Log.
func Decode(data []byte) ([]telemetry.EventRow, error) {
	var blocks []block
	if err := yaml.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("decode event journal: %w", err)
	}
	rows := make([]telemetry.EventRow, len(blocks))
	for i, b := range blocks {
		rows[i] = b.Event
	}
	return rows, nil
}
