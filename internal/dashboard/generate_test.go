package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := Render(t.TempDir(), DefaultTables()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	dir := t.TempDir()
	tables := Tables{ScoreTable: "s_tbl", ClockTable: "c_tbl", EventTable: "e_tbl"}
	if err := Render(dir, tables); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("rendered dashboard is not valid JSON")
	}
	for _, want := range []string{"uid1", "FROM s_tbl", "FROM c_tbl", "FROM e_tbl"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}
