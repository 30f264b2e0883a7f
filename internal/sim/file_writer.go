package sim

import (
	"encoding/json"
	"os"
	"sync"

	"droneops-referee/internal/telemetry"
)

// FileWriter writes clock, score and event rows to JSONL files.
type FileWriter struct {
	mu        sync.Mutex
	clockFile *os.File
	scoreFile *os.File
	eventFile *os.File
	clockEnc  *json.Encoder
	scoreEnc  *json.Encoder
	eventEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. clockPath or eventPath may be empty to
// skip those streams.
func NewFileWriter(scorePath, clockPath, eventPath string) (*FileWriter, error) {
	sf, err := os.Create(scorePath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{scoreFile: sf, scoreEnc: json.NewEncoder(sf)}
	if clockPath != "" {
		cf, err := os.Create(clockPath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.clockFile = cf
		fw.clockEnc = json.NewEncoder(cf)
	}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			if fw.clockFile != nil {
				fw.clockFile.Close()
			}
			sf.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// WriteScore logs a single score row.
func (f *FileWriter) WriteScore(row telemetry.ScoreRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreEnc.Encode(row)
}

// WriteClock logs a clock row, if enabled.
func (f *FileWriter) WriteClock(row telemetry.ClockRow) error {
	if f.clockEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clockEnc.Encode(row)
}

// WriteEvent logs a journal event, if enabled.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple journal events.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.scoreFile, f.clockFile, f.eventFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
