package journal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droneops-referee/internal/telemetry"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordsOrderedByID(t *testing.T) {
	s := openMemory(t)
	for _, id := range []int{3, 1, 12, 2} {
		require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "run-a", ID: id, Type: fmt.Sprintf("e%d", id)}))
	}
	require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "run-b", ID: 1, Type: "started"}))

	rows, err := s.Records(context.Background(), "run-a")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	ids := []int{rows[0].ID, rows[1].ID, rows[2].ID, rows[3].ID}
	assert.Equal(t, []int{1, 2, 3, 12}, ids)
	assert.Equal(t, "e12", rows[3].Type)

	rows, err = s.Records(context.Background(), "run-b")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "started", rows[0].Type)
}

func TestRuns(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "b", ID: 1}))
	require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "a", ID: 1}))
	require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "a", ID: 2}))

	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runs)
}

func TestWriteEventRequiresRunID(t *testing.T) {
	s := openMemory(t)
	assert.Error(t, s.WriteEvent(telemetry.EventRow{ID: 1}))
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "r", ID: 1, Type: "finished", TotalScore: 42}))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.Records(context.Background(), "r")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].TotalScore)
}

func TestConcurrentWrites(t *testing.T) {
	s := openMemory(t)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, s.WriteEvent(telemetry.EventRow{RunID: "r", ID: id}))
		}(i)
	}
	wg.Wait()
	rows, err := s.Records(context.Background(), "r")
	require.NoError(t, err)
	assert.Len(t, rows, 50)
}
