package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"droneops-referee/internal/telemetry"
)

// Table names for the clock and event streams. The score table name comes
// from telemetry.ScoreTableName.
const (
	ClockTableName = "referee_clock"
	EventTableName = "referee_events"
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes referee streams to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	scoreTable string
	clockTable string
	eventTable string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
// Tables are created by GreptimeDB on first write.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid greptime port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:     client,
		scoreTable: telemetry.ScoreTableName,
		clockTable: ClockTableName,
		eventTable: EventTableName,
	}, nil
}

// WriteScore inserts a single score row.
func (w *GreptimeDBWriter) WriteScore(row telemetry.ScoreRow) error {
	tbl, err := table.New(w.scoreTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("score", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("time_penalty", types.INT64); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	if err := tbl.AddRow(row.RunID, row.Score, int64(row.TimePenalty), row.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

// WriteClock inserts a single clock row.
func (w *GreptimeDBWriter) WriteClock(row telemetry.ClockRow) error {
	tbl, err := table.New(w.clockTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("phase", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("seconds", types.INT64); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	if err := tbl.AddRow(row.RunID, row.Phase, row.Seconds, row.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple event rows.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("type", types.STRING); err != nil {
		return err
	}
	for _, col := range []string{"id", "time_sec", "elapsed_real_time", "elapsed_sim_time", "total_score"} {
		if err := tbl.AddFieldColumn(col, types.INT64); err != nil {
			return err
		}
	}
	if err := tbl.AddFieldColumn("data", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.Type, int64(r.ID), r.TimeSec, r.ElapsedRealTime,
			r.ElapsedSimTime, r.TotalScore, r.Data, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		slog.Error("greptime write failed", "rows", n, "error", err)
		return err
	}
	slog.Debug("greptime write", "rows", n)
	return nil
}
