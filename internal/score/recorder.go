// Package score computes the run score and persists summary.yml and score.yml.
package score

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-referee/internal/metrics"
	"droneops-referee/internal/penalty"
)

// File names inside the run directory.
const (
	SummaryFile = "summary.yml"
	ScoreFile   = "score.yml"
)

// Stats is the run state a snapshot is computed from. Penalty is the
// ledger total, possibly penalty.Infinite. Seq orders snapshots taken by
// concurrent callers; zero means unordered.
type Stats struct {
	Started     bool
	SimElapsed  time.Duration
	RealElapsed time.Duration
	ModelCount  int
	Penalty     int
	Seq         uint64
}

// Snapshot is a computed score.
type Snapshot struct {
	Stats
	Score float64
}

// Infinite reports whether the score is the unrecoverable sentinel.
func (s Snapshot) Infinite() bool { return s.Penalty == penalty.Infinite }

// Compute returns elapsed simulated seconds plus the penalty, or the
// infinite sentinel when the penalty is infinite.
func Compute(simElapsed time.Duration, timePenalty int) float64 {
	if timePenalty == penalty.Infinite {
		return penalty.Infinite
	}
	return float64(int64(simElapsed/time.Second) + int64(timePenalty))
}

// Summary is the layout of summary.yml.
type Summary struct {
	WasStarted          bool  `yaml:"was_started"`
	SimTimeDurationSec  int64 `yaml:"sim_time_duration_sec"`
	RealTimeDurationSec int64 `yaml:"real_time_duration_sec"`
	ModelCount          int   `yaml:"model_count"`
	TimePenalty         int   `yaml:"time_penalty"`
}

// Recorder writes score files into a run directory. Files are replaced
// atomically so readers never see partial content.
type Recorder struct {
	dir string

	fileMu sync.Mutex
	seq    uint64

	mu   sync.RWMutex
	last Snapshot
}

// NewRecorder returns a recorder writing into dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Refresh recomputes the score from s and rewrites both files.
// The returned snapshot is valid even when writing failed. Stats older
// than the last applied Seq are dropped and the current snapshot returned.
func (r *Recorder) Refresh(s Stats) (Snapshot, error) {
	if !s.Started {
		s.SimElapsed, s.RealElapsed = 0, 0
	}
	snap := Snapshot{Stats: s, Score: Compute(s.SimElapsed, s.Penalty)}

	r.fileMu.Lock()
	defer r.fileMu.Unlock()
	if s.Seq != 0 {
		if s.Seq < r.seq {
			return r.Current(), nil
		}
		r.seq = s.Seq
	}

	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()
	metrics.Score.Set(snap.Score)

	summary, err := yaml.Marshal(Summary{
		WasStarted:          s.Started,
		SimTimeDurationSec:  int64(s.SimElapsed / time.Second),
		RealTimeDurationSec: int64(s.RealElapsed / time.Second),
		ModelCount:          s.ModelCount,
		TimePenalty:         s.Penalty,
	})
	if err != nil {
		return snap, fmt.Errorf("marshal summary: %w", err)
	}
	if err := writeAtomic(filepath.Join(r.dir, SummaryFile), summary); err != nil {
		return snap, err
	}
	line := strconv.FormatFloat(snap.Score, 'f', -1, 64) + "\n"
	if err := writeAtomic(filepath.Join(r.dir, ScoreFile), []byte(line)); err != nil {
		return snap, err
	}
	return snap, nil
}

// Current returns the last computed snapshot.
func (r *Recorder) Current() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	ok = true
	return nil
}

// ReadSummary loads summary.yml from dir.
func ReadSummary(dir string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		return s, fmt.Errorf("read summary: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode summary: %w", err)
	}
	return s, nil
}
