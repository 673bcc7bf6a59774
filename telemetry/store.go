/*
store.go - Storage contracts for the ingestion pipeline

PURPOSE:
  Interface definitions implemented by store/sqlite (production) and
  store (in-memory, tests). Higher layers depend on these, never on a
  concrete store.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - store/memory.go: In-memory implementation
  - archive/maintainer.go: Sweeper consumer
*/
package telemetry

import "context"

// Writer persists merged records. The Persistence Writer contract: one row
// per record, fields as columns, timestamp as creation time. A failed
// append is surfaced, never re-queued.
type Writer interface {
	Append(ctx context.Context, rec MergedRecord) error
}

// DumpFunc receives the full live row set, oldest-first, before the sweep
// deletes it. Returning an error aborts the sweep.
type DumpFunc func(columns []string, rows [][]any) error

// Sweeper runs the count-read-dump-clear maintenance sequence as one atomic
// unit. The sweep fires only once the row count exceeds threshold; swept is
// false otherwise.
type Sweeper interface {
	SweepTelemetry(ctx context.Context, threshold int, dump DumpFunc) (swept bool, rowCount int, err error)
}
