// Package journal mirrors journaled events into a badger key-value store so
// runs can be listed and replayed after the process exits.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"droneops-referee/internal/telemetry"
)

const keyPrefix = "event/"

// Store is a badger backed event journal. It implements events.Mirror.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the journal at path, creating it if needed. An empty path
// opens an in-memory journal.
func Open(path string, logger *slog.Logger) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Store{db: db}, nil
}

func eventKey(runID string, id int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", keyPrefix, runID, id))
}

// WriteEvent stores one event under its run id and event id.
func (s *Store) WriteEvent(row telemetry.EventRow) error {
	if row.RunID == "" {
		return errors.New("journal: event has no run id")
	}
	val, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(row.RunID, row.ID), val)
	})
}

// Records returns the events of a run ordered by id.
func (s *Store) Records(ctx context.Context, runID string) ([]telemetry.EventRow, error) {
	prefix := []byte(keyPrefix + runID + "/")
	var rows []telemetry.EventRow
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row telemetry.EventRow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return rows, nil
}

// Runs returns the ids of all journaled runs, sorted.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			if i := strings.LastIndexByte(rest, '/'); i > 0 {
				seen[rest[:i]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list journal runs: %w", err)
	}
	runs := make([]string, 0, len(seen))
	for r := range seen {
		runs = append(runs, r)
	}
	sort.Strings(runs)
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
