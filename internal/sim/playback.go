package sim

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"

	"droneops-referee/internal/logging"
	"droneops-referee/internal/telemetry"
)

// FrameSource yields simulation frames one at a time. Next returns io.EOF
// when no more frames will arrive.
type FrameSource interface {
	Next(ctx context.Context) (telemetry.Frame, error)
}

// FrameReader decodes JSONL frames. In follow mode it keeps waiting for new
// lines at EOF, like tail -f.
type FrameReader struct {
	r       *bufio.Reader
	file    *os.File
	watcher *fsnotify.Watcher
	pending []byte
}

// NewFrameReader reads frames from r until EOF.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// OpenFrameFile opens a frame log. With follow set the reader watches the file
// for writes instead of stopping at EOF.
func OpenFrameFile(path string, follow bool) (*FrameReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame log: %w", err)
	}
	fr := &FrameReader{r: bufio.NewReader(f), file: f}
	if !follow {
		return fr, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		f.Close()
		return nil, fmt.Errorf("watch frame log: %w", err)
	}
	fr.watcher = w
	return fr, nil
}

// Next returns the next decoded frame. Blank lines are skipped and malformed
// lines are logged and skipped.
func (fr *FrameReader) Next(ctx context.Context) (telemetry.Frame, error) {
	log := logging.FromContext(ctx)
	for {
		line, err := fr.r.ReadBytes('\n')
		fr.pending = append(fr.pending, line...)
		if errors.Is(err, io.EOF) {
			if fr.watcher == nil {
				if len(fr.pending) == 0 {
					return telemetry.Frame{}, io.EOF
				}
			} else {
				if werr := fr.wait(ctx); werr != nil {
					return telemetry.Frame{}, werr
				}
				continue
			}
		} else if err != nil {
			return telemetry.Frame{}, err
		}

		raw := fr.pending
		fr.pending = nil
		if len(bytes.TrimSpace(raw)) == 0 {
			if errors.Is(err, io.EOF) {
				return telemetry.Frame{}, io.EOF
			}
			continue
		}
		var frame telemetry.Frame
		if derr := json.Unmarshal(raw, &frame); derr != nil {
			log.Error("skipping malformed frame", "error", derr)
			continue
		}
		return frame, nil
	}
}

func (fr *FrameReader) wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fr.watcher.Events:
			if !ok {
				return io.EOF
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return io.EOF
			}
		case err, ok := <-fr.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("watch frame log: %w", err)
		}
	}
}

// Close releases the file and watcher, if any.
func (fr *FrameReader) Close() error {
	var err error
	if fr.watcher != nil {
		err = fr.watcher.Close()
	}
	if fr.file != nil {
		if e := fr.file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
