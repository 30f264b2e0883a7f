package scenario

import "droneops-referee/internal/telemetry"

func sec(v float64) *float64 { return &v }

// BuiltIn returns predefined practice runs. They assume a geofence centered
// on the origin of at least 200 m on each horizontal side and targets
// shipA (obj1 small, obj2 large) and shipB.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"clean-run": {
			Name:        "Clean Run",
			Description: "One surface vessel leaves the start gate, identifies both vessels and retrieves every object.",
			DurationSec: 300,
			Robots: []Robot{
				{
					Name: "usv",
					Waypoints: []Waypoint{
						{AtSec: 0},
						{AtSec: 30, Position: pos(40, 0, 0)},
						{AtSec: 120, Position: pos(60, 50, 0)},
						{AtSec: 240, Position: pos(0, 0, 0)},
					},
				},
			},
			Reports: []Report{
				{AtSec: 60, Fields: []string{"shipA"}},
				{AtSec: 90, Fields: []string{"shipA", "obj1", ""}},
				{AtSec: 120, Fields: []string{"shipA", "", "obj2"}},
				{AtSec: 150, Fields: []string{"shipB"}},
			},
		},
		"boundary-breach": {
			Name:        "Boundary Breach",
			Description: "An aerial robot drifts out of the geofence twice and the run is terminated.",
			DurationSec: 200,
			Robots: []Robot{
				{
					Name: "uav",
					Waypoints: []Waypoint{
						{AtSec: 0, Position: pos(0, 0, 10)},
						{AtSec: 20, Position: pos(20, 0, 10)},
						{AtSec: 60, Position: pos(500, 0, 10)},
						{AtSec: 100, Position: pos(0, 0, 10)},
						{AtSec: 140, Position: pos(500, 0, 10)},
					},
				},
			},
		},
		"misidentification": {
			Name:        "Misidentification",
			Description: "Repeated reports of an unknown vessel escalate to the terminal penalty.",
			DurationSec: 120,
			Robots: []Robot{
				{
					Name:              "usv",
					Waypoints:         []Waypoint{{AtSec: 0}, {AtSec: 20, Position: pos(30, 0, 0)}},
					BatteryEmptyAtSec: sec(100),
				},
			},
			Reports: []Report{
				{AtSec: 30, Fields: []string{"ghost"}},
				{AtSec: 40, Fields: []string{"ghost"}},
				{AtSec: 50, Fields: []string{"ghost"}},
			},
		},
	}
}

func pos(x, y, z float64) telemetry.Position {
	return telemetry.Position{X: x, Y: y, Z: z}
}
