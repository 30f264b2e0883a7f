// Package dashboard renders the Grafana dashboard for the referee tables.
package dashboard

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"droneops-referee/internal/sim"
	"droneops-referee/internal/telemetry"
)

// FileName is the rendered dashboard file name.
const FileName = "grafana-dashboard.json"

//go:embed grafana-dashboard.json.tmpl
var dashboardTemplate string

// Tables names the GreptimeDB tables queried by the dashboard.
type Tables struct {
	ScoreTable string
	ClockTable string
	EventTable string
}

// DefaultTables returns the tables the greptime writer fills.
func DefaultTables() Tables {
	return Tables{
		ScoreTable: telemetry.ScoreTableName,
		ClockTable: sim.ClockTableName,
		EventTable: sim.EventTableName,
	}
}

// Render writes the dashboard to outDir. The datasource uid is taken from
// GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	t, err := template.New(FileName).Funcs(funcMap).Parse(dashboardTemplate)
	if err != nil {
		return fmt.Errorf("parse dashboard template: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outDir, FileName))
	if err != nil {
		return err
	}
	if err := t.Execute(f, tables); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
