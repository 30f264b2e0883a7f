package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// SimLog is the free-text run log. Every line starts with the simulated
// time it was written at as "<sec> <nsec> ".
type SimLog struct {
	mu  sync.Mutex
	out io.Writer
	f   *os.File
}

// OpenSimLog creates the log file at path, truncating any previous content.
func OpenSimLog(path string) (*SimLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &SimLog{out: f, f: f}, nil
}

// NewSimLog wraps an arbitrary writer.
func NewSimLog(w io.Writer) *SimLog {
	return &SimLog{out: w}
}

// Printf writes one stamped entry. A trailing newline is added when missing.
func (l *SimLog) Printf(simTime time.Duration, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	sec, nsec := SplitSimTime(simTime)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%d %d %s", sec, nsec, msg)
}

// Sync flushes the file to disk, if any.
func (l *SimLog) Sync() error {
	if l == nil || l.f == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Sync()
}

// Close closes the underlying file, if any.
func (l *SimLog) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// SplitSimTime splits a simulated time into whole seconds and the nanosecond remainder.
func SplitSimTime(d time.Duration) (sec, nsec int64) {
	return int64(d / time.Second), int64(d % time.Second)
}
