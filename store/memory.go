// Package store provides telemetry store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homelink/telemetry-engine/telemetry"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps merged records in a slice, ordered by insertion. It mirrors
// the sqlite store's contracts, including the oldest-first sweep order and
// the clear-on-sweep behavior.
type Memory struct {
	mu      sync.Mutex
	records []telemetry.MergedRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

// Append stores one merged record.
func (m *Memory) Append(_ context.Context, rec telemetry.MergedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// CountTelemetry returns the number of live records.
func (m *Memory) CountTelemetry(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

// Records returns a copy of the live records. Test helper.
func (m *Memory) Records() []telemetry.MergedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]telemetry.MergedRecord, len(m.records))
	copy(out, m.records)
	return out
}

// SweepTelemetry applies the count-read-dump-clear sequence against the
// in-memory slice, under one lock so the whole unit is atomic.
func (m *Memory) SweepTelemetry(_ context.Context, threshold int, dump telemetry.DumpFunc) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) <= threshold {
		return false, len(m.records), nil
	}

	ordered := make([]telemetry.MergedRecord, len(m.records))
	copy(ordered, m.records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	columns := append(telemetry.ColumnNames(), "created_at")
	rows := make([][]any, 0, len(ordered))
	for _, rec := range ordered {
		row := make([]any, len(columns))
		for i, col := range columns {
			if col == "created_at" {
				row[i] = rec.CreatedAt.UTC().Format(time.RFC3339)
				continue
			}
			row[i] = rec.Fields[col]
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := dump(columns, rows); err != nil {
			return false, 0, err
		}
	}

	m.records = nil
	return true, len(rows), nil
}
