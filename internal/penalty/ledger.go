// Package penalty implements escalating time penalties.
package penalty

import (
	"fmt"
	"math"
	"sync"

	"droneops-referee/internal/metrics"
)

// Infinite is the sentinel for an unrecoverable penalty.
const Infinite = math.MaxInt32

// Category is a violation class with its own schedule.
type Category int

const (
	VesselID Category = iota
	SmallObjectID
	LargeObjectID
	SmallObjectRetrieve
	LargeObjectRetrieve
	Boundary
)

var categoryNames = map[Category]string{
	VesselID:            "vessel_id",
	SmallObjectID:       "small_object_id",
	LargeObjectID:       "large_object_id",
	SmallObjectRetrieve: "small_object_retrieve",
	LargeObjectRetrieve: "large_object_retrieve",
	Boundary:            "boundary",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category_%d", int(c))
}

// Schedules maps each category to its tier penalties in seconds. The last
// entry is always Infinite and applies to every count past the schedule.
var Schedules = map[Category][]int{
	VesselID:            {180, 240, Infinite},
	SmallObjectID:       {180, 240, Infinite},
	LargeObjectID:       {180, 240, Infinite},
	SmallObjectRetrieve: {120, Infinite},
	LargeObjectRetrieve: {120, Infinite},
	Boundary:            {300, Infinite},
}

// Outcome describes one applied penalty. Tier is the 1-based violation
// count for (Category, Key).
type Outcome struct {
	Category Category
	Key      string
	Tier     int
	Penalty  int
	Terminal bool
}

type counterKey struct {
	cat Category
	key string
}

// Ledger counts violations and accumulates the total time penalty.
// It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	counts   map[counterKey]int
	total    int
	infinite bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[counterKey]int)}
}

// Apply records one more violation of cat for key and returns the penalty
// that was applied. Finite tiers add to the total; the terminal tier sets
// the total to Infinite for good.
func (l *Ledger) Apply(cat Category, key string) Outcome {
	sched := Schedules[cat]
	l.mu.Lock()
	k := counterKey{cat, key}
	l.counts[k]++
	n := l.counts[k]
	idx := n - 1
	if idx >= len(sched) {
		idx = len(sched) - 1
	}
	p := sched[idx]
	out := Outcome{Category: cat, Key: key, Tier: n, Penalty: p, Terminal: p == Infinite}
	if out.Terminal {
		l.infinite = true
	} else if !l.infinite {
		l.total += p
	}
	total := l.totalLocked()
	l.mu.Unlock()

	tier := "terminal"
	if !out.Terminal {
		tier = fmt.Sprint(n)
	}
	metrics.PenaltiesApplied.WithLabelValues(cat.String(), tier).Inc()
	metrics.TimePenalty.Set(float64(total))
	return out
}

// Count returns the number of violations recorded for (cat, key).
func (l *Ledger) Count(cat Category, key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[counterKey{cat, key}]
}

// Total returns the accumulated penalty, or Infinite.
func (l *Ledger) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Ledger) totalLocked() int {
	if l.infinite {
		return Infinite
	}
	return l.total
}

// IsInfinite reports whether any category reached its terminal tier.
func (l *Ledger) IsInfinite() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.infinite
}
