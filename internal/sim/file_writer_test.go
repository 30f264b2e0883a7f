package sim

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"droneops-referee/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	scoreRow := telemetry.ScoreRow{RunID: "r1", Score: 280, TimePenalty: 180, Timestamp: ts}
	clockRow := telemetry.ClockRow{RunID: "r1", Phase: telemetry.PhaseRun, Seconds: 10, Timestamp: ts}
	eventRow := telemetry.EventRow{RunID: "r1", ID: 2, Type: "dead_battery", Data: "usv", Timestamp: ts}

	cases := []struct {
		name   string
		path   string
		write  func(*FileWriter) error
		decode func([]byte)
	}{
		{
			name:  "score",
			path:  filepath.Join(dir, "score.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteScore(scoreRow) },
			decode: func(b []byte) {
				var got telemetry.ScoreRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode score: %v", err)
				}
				if got.Score != scoreRow.Score || got.TimePenalty != scoreRow.TimePenalty {
					t.Fatalf("unexpected score: %#v", got)
				}
			},
		},
		{
			name:  "clock",
			path:  filepath.Join(dir, "clock.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteClock(clockRow) },
			decode: func(b []byte) {
				var got telemetry.ClockRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode clock: %v", err)
				}
				if got.Phase != clockRow.Phase || got.Seconds != clockRow.Seconds {
					t.Fatalf("unexpected clock: %#v", got)
				}
			},
		},
		{
			name:  "event",
			path:  filepath.Join(dir, "events.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteEvents([]telemetry.EventRow{eventRow}) },
			decode: func(b []byte) {
				var got telemetry.EventRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				if got.ID != eventRow.ID || got.Data != eventRow.Data || got.RunID != "r1" {
					t.Fatalf("unexpected event: %#v", got)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorePath := filepath.Join(dir, tc.name+"_score.jsonl")
			var clock, events string
			switch tc.name {
			case "score":
				scorePath = tc.path
			case "clock":
				clock = tc.path
			case "event":
				events = tc.path
			}
			fw, err := NewFileWriter(scorePath, clock, events)
			if err != nil {
				t.Fatalf("NewFileWriter: %v", err)
			}
			if err := tc.write(fw); err != nil {
				t.Fatalf("write: %v", err)
			}
			fw.Close()
			data, err := os.ReadFile(tc.path)
			if err != nil {
				t.Fatalf("read file: %v", err)
			}
			tc.decode(data)
		})
	}
}

func TestFileWriterSkipsDisabledStreams(t *testing.T) {
	fw, err := NewFileWriter(filepath.Join(t.TempDir(), "score.jsonl"), "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteClock(telemetry.ClockRow{}); err != nil {
		t.Fatalf("disabled clock should be a no-op: %v", err)
	}
	if err := fw.WriteEvent(telemetry.EventRow{}); err != nil {
		t.Fatalf("disabled events should be a no-op: %v", err)
	}
}

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	_ = w.WriteClock(telemetry.ClockRow{Phase: telemetry.PhaseSetup, Seconds: 5})
	_ = w.WriteScore(telemetry.ScoreRow{Score: 1})
	_ = w.WriteEvents([]telemetry.EventRow{{Type: "started"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var got struct {
		Stream string          `json:"stream"`
		Row    json.RawMessage `json:"row"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Stream != "event" || !strings.Contains(string(got.Row), `"type":"started"`) {
		t.Fatalf("unexpected line %s", lines[2])
	}
}

func TestColorStdoutWriterPrintsPhaseChanges(t *testing.T) {
	var buf bytes.Buffer
	w := &ColorStdoutWriter{out: &buf}
	_ = w.WriteClock(telemetry.ClockRow{Phase: telemetry.PhaseSetup, Seconds: 600})
	_ = w.WriteClock(telemetry.ClockRow{Phase: telemetry.PhaseSetup, Seconds: 599})
	_ = w.WriteClock(telemetry.ClockRow{Phase: telemetry.PhaseRun, Seconds: 3600})
	_ = w.WriteEvent(telemetry.EventRow{ID: 1, Type: "exceed_boundary_1", Data: "usv"})
	out := buf.String()
	if strings.Count(out, "PHASE") != 2 {
		t.Fatalf("expected two phase lines:\n%s", out)
	}
	if !strings.Contains(out, "exceed_boundary_1") || !strings.Contains(out, "usv") {
		t.Fatalf("event line missing:\n%s", out)
	}
}
