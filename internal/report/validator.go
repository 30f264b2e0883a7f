// Package report validates target identification reports.
package report

import (
	"fmt"

	"droneops-referee/internal/metrics"
	"droneops-referee/internal/penalty"
	"droneops-referee/internal/target"
	"droneops-referee/internal/telemetry"
)

// EventType is the journal type of every report outcome.
const EventType = "target_reported"

// Outcomes logged as event data.
const (
	EmptyReport            = "empty_report"
	TargetVesselMissing    = "target_vessel_missing"
	VesselIDSuccess        = "vessel_id_success"
	VesselIDDuplicate      = "vessel_id_duplicate"
	SmallObjectIDSuccess   = "small_object_id_success"
	SmallObjectIDDuplicate = "small_object_id_duplicate"
	LargeObjectIDSuccess   = "large_object_id_success"
	LargeObjectIDDuplicate = "large_object_id_duplicate"
)

// EventLogger journals report outcomes.
type EventLogger interface {
	LogEvent(typ, data string) telemetry.EventRow
}

// RunHooks lets the validator drive the run after a penalty.
type RunHooks interface {
	RefreshScore()
	ForceFinish()
}

// Validator matches queued reports against the target registry.
// Process must only be called from one goroutine at a time.
type Validator struct {
	queue    *Queue
	registry *target.Registry
	ledger   *penalty.Ledger
	events   EventLogger
	hooks    RunHooks
}

// NewValidator returns a validator draining queue.
func NewValidator(queue *Queue, registry *target.Registry, ledger *penalty.Ledger, events EventLogger, hooks RunHooks) *Validator {
	return &Validator{queue: queue, registry: registry, ledger: ledger, events: events, hooks: hooks}
}

// Process drains the queue and validates each report in order. It returns
// true when a terminal penalty finished the run; the rest of the drained
// reports are discarded in that case.
func (v *Validator) Process() bool {
	for _, fields := range v.queue.Drain() {
		if v.validate(fields) {
			return true
		}
	}
	return false
}

// A report advances identification by one stage: the vessel first, then one
// small or large object per report. A small object claim takes precedence
// when both object fields are set.
func (v *Validator) validate(fields []string) bool {
	if len(fields) == 0 {
		v.log(EmptyReport)
		return false
	}
	vessel := fields[0]
	if vessel == "" {
		v.log(TargetVesselMissing)
		return false
	}

	known, first := v.registry.ReportVessel(vessel)
	if !known {
		return v.penalize(penalty.VesselID, "", "vessel_id_failure")
	}
	if first {
		v.log(VesselIDSuccess)
		return false
	}

	if small := field(fields, 1); small != "" {
		switch v.registry.ReportSmall(vessel, small) {
		case target.ClaimNew:
			v.log(SmallObjectIDSuccess)
		case target.ClaimDuplicate:
			v.log(SmallObjectIDDuplicate)
		default:
			return v.penalize(penalty.SmallObjectID, vessel, "small_object_id_failure")
		}
		return false
	}
	if large := field(fields, 2); large != "" {
		switch v.registry.ReportLarge(vessel, large) {
		case target.ClaimNew:
			v.log(LargeObjectIDSuccess)
		case target.ClaimDuplicate:
			v.log(LargeObjectIDDuplicate)
		default:
			return v.penalize(penalty.LargeObjectID, vessel, "large_object_id_failure")
		}
		return false
	}
	v.log(VesselIDDuplicate)
	return false
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// penalize applies the next tier of cat for key and logs it as prefix_<tier>.
// Tiers past the schedule are logged as the last tier.
func (v *Validator) penalize(cat penalty.Category, key, prefix string) bool {
	out := v.ledger.Apply(cat, key)
	tier := out.Tier
	if n := len(penalty.Schedules[cat]); tier > n {
		tier = n
	}
	data := fmt.Sprintf("%s_%d", prefix, tier)
	if !out.Terminal {
		v.hooks.RefreshScore()
		v.log(data)
		return false
	}
	v.log(data)
	v.hooks.ForceFinish()
	return true
}

func (v *Validator) log(outcome string) {
	metrics.ReportsProcessed.WithLabelValues(outcome).Inc()
	v.events.LogEvent(EventType, outcome)
}
