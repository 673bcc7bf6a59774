/*
sqlite_test.go - Unit tests for the SQLite telemetry store

Tests for:
- Append writing fields as columns with created_at
- Rejection of fields with no matching column
- Transactional sweep: below threshold no-op, at threshold dump+clear
- Rollback on dump failure leaving the table unmodified
- Device CRUD and archive-run bookkeeping
*/
package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelink/telemetry-engine/store/sqlite"
	"github.com/homelink/telemetry-engine/telemetry"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(ts time.Time, fields map[string]interface{}) telemetry.MergedRecord {
	return telemetry.MergedRecord{Device: "dev-1", Fields: fields, CreatedAt: ts}
}

func TestAppend_WritesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Append(ctx, record(time.Now(), map[string]interface{}{
		"temperature_indoor": 21.0,
		"door_state":         "closed",
	}))
	require.NoError(t, err)

	count, err := store.CountTelemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAppend_UnknownColumnIsStorageFailure(t *testing.T) {
	store := newTestStore(t)

	err := store.Append(context.Background(), record(time.Now(), map[string]interface{}{
		"not_a_column": 1,
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, telemetry.ErrStorageFailure))

	count, err := store.CountTelemetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "rejected insert must not leave a row")
}

func TestSweep_AtThresholdDoesNothing(t *testing.T) {
	// The table may sit at the threshold; only the write pushing it past
	// triggers a sweep.
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, record(time.Now(), map[string]interface{}{"co2": 500 + i})))
	}

	dumped := false
	swept, count, err := store.SweepTelemetry(ctx, 3, func([]string, [][]any) error {
		dumped = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, swept)
	assert.Equal(t, 3, count)
	assert.False(t, dumped, "dump must not run at or below threshold")

	live, err := store.CountTelemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, live)
}

func TestSweep_PastThresholdDumpsOldestFirstAndClears(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	temps := []float64{18, 19, 20, 21}
	// Insert out of order; the sweep must read back oldest-first.
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, store.Append(ctx, record(base.Add(time.Duration(i)*time.Minute), map[string]interface{}{
			"temperature_indoor": temps[i],
		})))
	}

	var gotColumns []string
	var gotRows [][]any
	swept, count, err := store.SweepTelemetry(ctx, 3, func(columns []string, rows [][]any) error {
		gotColumns = columns
		gotRows = rows
		return nil
	})
	require.NoError(t, err)
	assert.True(t, swept)
	assert.Equal(t, 4, count)

	require.Len(t, gotRows, 4)
	assert.Equal(t, "created_at", gotColumns[len(gotColumns)-1])

	// Oldest-first by created_at
	idx := indexOf(t, gotColumns, "temperature_indoor")
	for i, want := range temps {
		assert.InDelta(t, want, gotRows[i][idx], 0.001, "row %d out of order", i)
	}

	live, err := store.CountTelemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, live, "table must be empty after the sweep")
}

func TestSweep_DumpFailureRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, record(time.Now(), map[string]interface{}{"humidity": 40 + i})))
	}

	boom := errors.New("disk full")
	swept, _, err := store.SweepTelemetry(ctx, 2, func([]string, [][]any) error {
		return boom
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, swept)

	live, err := store.CountTelemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, live, "failed sweep must leave the table unmodified")
}

func TestDeviceCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := sqlite.Device{
		ID:           "dev-1",
		Name:         "Living Room Hub",
		Location:     "living room",
		RegisteredAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveDevice(ctx, d))

	got, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, d.Location, got.Location)
	assert.True(t, d.RegisteredAt.Equal(got.RegisteredAt))

	missing, err := store.GetDevice(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteDevice(ctx, "dev-1"))
	gone, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestArchiveRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := sqlite.ArchiveRun{
		ID:        "run-1",
		Filename:  "telemetry_20260301_100000.csv",
		RowCount:  42,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveArchiveRun(ctx, run))

	runs, err := store.ListArchiveRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.Filename, runs[0].Filename)
	assert.Equal(t, 42, runs[0].RowCount)
}

func indexOf(t *testing.T, columns []string, name string) int {
	t.Helper()
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %q not found in %v", name, columns)
	return -1
}
