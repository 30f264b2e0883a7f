// Package target holds the catalog of vessels and objects a team has to identify.
package target

import (
	"sort"
	"sync"

	"droneops-referee/internal/config"
)

// Target is a vessel with its small and large objects and what has been
// reported about them so far. Reported sets are always subsets of the
// corresponding object sets.
type Target struct {
	Vessel         string
	SmallObjects   map[string]struct{}
	LargeObjects   map[string]struct{}
	VesselReported bool
	SmallReported  map[string]struct{}
	LargeReported  map[string]struct{}
}

// Claim is the outcome of reporting one object.
type Claim int

const (
	ClaimInvalid Claim = iota
	ClaimNew
	ClaimDuplicate
)

func (c Claim) String() string {
	switch c {
	case ClaimNew:
		return "new"
	case ClaimDuplicate:
		return "duplicate"
	default:
		return "invalid"
	}
}

// Registry maps vessel names to targets. The catalog is fixed at
// construction; only the reported state changes. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]*Target
}

// NewRegistry builds a registry from config entries. Entries without a vessel
// are ignored and later entries for the same vessel replace earlier ones.
func NewRegistry(entries []config.Target) *Registry {
	r := &Registry{targets: make(map[string]*Target, len(entries))}
	for _, e := range entries {
		if e.Vessel == "" {
			continue
		}
		r.targets[e.Vessel] = &Target{
			Vessel:        e.Vessel,
			SmallObjects:  toSet(e.SmallObjects),
			LargeObjects:  toSet(e.LargeObjects),
			SmallReported: map[string]struct{}{},
			LargeReported: map[string]struct{}{},
		}
	}
	return r
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Known reports whether vessel is in the catalog.
func (r *Registry) Known(vessel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[vessel]
	return ok
}

// Len returns the number of vessels.
func (r *Registry) Len() int { return len(r.targets) }

// Vessels returns the vessel names in sorted order.
func (r *Registry) Vessels() []string {
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReportVessel marks vessel reported. first is false when it already was.
func (r *Registry) ReportVessel(vessel string) (known, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[vessel]
	if !ok {
		return false, false
	}
	if t.VesselReported {
		return true, false
	}
	t.VesselReported = true
	return true, true
}

// ReportSmall records a small object claim against vessel.
func (r *Registry) ReportSmall(vessel, obj string) Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[vessel]
	if !ok {
		return ClaimInvalid
	}
	return claim(t.SmallObjects, t.SmallReported, obj)
}

// ReportLarge records a large object claim against vessel.
func (r *Registry) ReportLarge(vessel, obj string) Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[vessel]
	if !ok {
		return ClaimInvalid
	}
	return claim(t.LargeObjects, t.LargeReported, obj)
}

func claim(valid, reported map[string]struct{}, obj string) Claim {
	if _, ok := valid[obj]; !ok {
		return ClaimInvalid
	}
	if _, ok := reported[obj]; ok {
		return ClaimDuplicate
	}
	reported[obj] = struct{}{}
	return ClaimNew
}

// Progress summarizes identification progress of one vessel.
type Progress struct {
	Vessel         string `json:"vessel"`
	VesselReported bool   `json:"vessel_reported"`
	SmallReported  int    `json:"small_reported"`
	SmallTotal     int    `json:"small_total"`
	LargeReported  int    `json:"large_reported"`
	LargeTotal     int    `json:"large_total"`
}

// Progress returns per-vessel progress sorted by vessel name.
func (r *Registry) Progress() []Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Progress, 0, len(r.targets))
	for _, n := range r.Vessels() {
		t := r.targets[n]
		out = append(out, Progress{
			Vessel:         n,
			VesselReported: t.VesselReported,
			SmallReported:  len(t.SmallReported),
			SmallTotal:     len(t.SmallObjects),
			LargeReported:  len(t.LargeReported),
			LargeTotal:     len(t.LargeObjects),
		})
	}
	return out
}
