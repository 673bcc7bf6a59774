/*
Package sqlite provides the SQLite-backed telemetry store.

PURPOSE:
  Implements the persistence interfaces of the ingestion pipeline:
  - Appending merged telemetry records (Persistence Writer)
  - The single-transaction count/read/clear sweep used by the
    archive-and-truncate maintainer
  - Device metadata rows and archive-run bookkeeping

KEY TABLES:
  telemetry:    One column per telemetry field (derived from the category
                key-sets) plus created_at. Cleared in bulk by the sweep.
  devices:      Device metadata. Plain column-level CRUD.
  archive_runs: One row per completed archive-and-truncate sweep.

SCHEMA COUPLING:
  The telemetry table's columns are generated from telemetry.ColumnNames().
  An insert naming any other column is rejected by SQLite, which is exactly
  the Writer's contract: unknown field => storage failure.

SWEEP ATOMICITY:
  SweepTelemetry runs count, read, dump, and delete inside one transaction.
  Rows inserted by a concurrent writer can therefore never be deleted
  without having been read first; a dump failure rolls everything back and
  leaves the live table untouched.

CONCURRENCY:
  Uses sync.RWMutex like the rest of the storage layer. SQLite is opened in
  WAL mode so readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/telemetry.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - telemetry/categories.go: Source of the column list
  - archive/maintainer.go: The only caller of SweepTelemetry
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homelink/telemetry-engine/telemetry"
)

// Store implements telemetry persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema. The telemetry table's columns follow
// the category key-sets.
func (s *Store) migrate() error {
	var cols strings.Builder
	for _, name := range telemetry.ColumnNames() {
		fmt.Fprintf(&cols, "\t\t%s,\n", name)
	}

	schema := fmt.Sprintf(`
	-- Merged telemetry records. No per-column typing: SQLite's dynamic
	-- typing keeps numbers, strings, and booleans as the device sent them.
	CREATE TABLE IF NOT EXISTS telemetry (
%s		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_created_at
		ON telemetry(created_at);

	-- Device metadata
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT,
		registered_at TEXT NOT NULL
	);

	-- One row per completed archive-and-truncate sweep
	CREATE TABLE IF NOT EXISTS archive_runs (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`, cols.String())

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PERSISTENCE WRITER
// =============================================================================

// Append inserts one merged record as a new row, with the record's fields as
// columns and its timestamp as created_at. A field naming no telemetry
// column makes SQLite reject the insert; the error wraps
// telemetry.ErrStorageFailure either way. Records are never re-queued on
// failure.
func (s *Store) Append(ctx context.Context, rec telemetry.MergedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := rec.FieldNames()
	columns := make([]string, 0, len(names)+1)
	placeholders := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		columns = append(columns, fmt.Sprintf("%q", name))
		placeholders = append(placeholders, "?")
		args = append(args, rec.Fields[name])
	}
	columns = append(columns, "created_at")
	placeholders = append(placeholders, "?")
	args = append(args, rec.CreatedAt.UTC().Format(time.RFC3339))

	query := fmt.Sprintf("INSERT INTO telemetry (%s) VALUES (%s)",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append telemetry: %w: %w", telemetry.ErrStorageFailure, err)
	}
	return nil
}

// CountTelemetry returns the number of rows in the live telemetry table.
func (s *Store) CountTelemetry(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count telemetry: %w", err)
	}
	return count, nil
}

// =============================================================================
// ARCHIVE SWEEP
// =============================================================================

// SweepTelemetry implements the count-read-dump-clear sequence as one
// transaction. The table may sit at the threshold; the write that pushes it
// past triggers the sweep. At or below threshold nothing happens and swept
// is false. Otherwise every row (ordered by created_at, oldest first) is
// handed to dump, then the table is cleared, and the whole unit commits.
// Any failure rolls back, leaving the live table unmodified.
func (s *Store) SweepTelemetry(ctx context.Context, threshold int, dump telemetry.DumpFunc) (swept bool, rowCount int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin sweep: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry`).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("count telemetry: %w", err)
	}
	if count <= threshold {
		return false, count, tx.Commit()
	}

	columns := append(telemetry.ColumnNames(), "created_at")
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	query := fmt.Sprintf("SELECT %s FROM telemetry ORDER BY created_at, rowid",
		strings.Join(quoted, ", "))

	sqlRows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return false, 0, fmt.Errorf("read telemetry: %w", err)
	}
	var rows [][]any
	for sqlRows.Next() {
		row := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			sqlRows.Close()
			return false, 0, fmt.Errorf("scan telemetry row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := sqlRows.Err(); err != nil {
		sqlRows.Close()
		return false, 0, fmt.Errorf("read telemetry: %w", err)
	}
	sqlRows.Close()

	// The dump runs only for a non-empty row set. The clear below is
	// unconditional: inside one transaction count and read observe the same
	// state, but the contract is clear-even-if-empty.
	if len(rows) > 0 {
		if err := dump(columns, rows); err != nil {
			return false, 0, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM telemetry`); err != nil {
		return false, 0, fmt.Errorf("clear telemetry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit sweep: %w", err)
	}
	return true, len(rows), nil
}

// =============================================================================
// DEVICE METADATA
// =============================================================================

// Device is a stored device metadata row.
type Device struct {
	ID           string
	Name         string
	Location     string
	RegisteredAt time.Time
}

// SaveDevice inserts or replaces a device row.
func (s *Store) SaveDevice(ctx context.Context, d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO devices (id, name, location, registered_at)
		VALUES (?, ?, ?, ?)`,
		d.ID, d.Name, d.Location, d.RegisteredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// GetDevice returns a device by ID, or nil if absent.
func (s *Store) GetDevice(ctx context.Context, id string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Device
	var registeredAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(location, ''), registered_at
		FROM devices WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Location, &registeredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	d.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt)
	return &d, nil
}

// ListDevices returns all devices ordered by ID.
func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(location, ''), registered_at
		FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var registeredAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Location, &registeredAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt)
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// DeleteDevice removes a device row.
func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// =============================================================================
// ARCHIVE RUNS
// =============================================================================

// ArchiveRun records one completed archive-and-truncate sweep.
type ArchiveRun struct {
	ID        string
	Filename  string
	RowCount  int
	CreatedAt time.Time
}

// SaveArchiveRun records a completed sweep.
func (s *Store) SaveArchiveRun(ctx context.Context, run ArchiveRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_runs (id, filename, row_count, created_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Filename, run.RowCount, run.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save archive run: %w", err)
	}
	return nil
}

// ListArchiveRuns returns all recorded sweeps, newest first.
func (s *Store) ListArchiveRuns(ctx context.Context) ([]ArchiveRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, row_count, created_at
		FROM archive_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list archive runs: %w", err)
	}
	defer rows.Close()

	var runs []ArchiveRun
	for rows.Next() {
		var run ArchiveRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Filename, &run.RowCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan archive run: %w", err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Reset clears all tables. Tests and dev only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"telemetry", "devices", "archive_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
