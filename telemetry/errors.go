/*
errors.go - Centralized error types for the ingestion pipeline

PURPOSE:
  All pipeline error kinds in one place. Layers wrap these with context via
  fmt.Errorf("...: %w", err); the API boundary classifies with errors.Is()
  and maps each kind to an HTTP status.

ERROR CATEGORIES:
  ErrMalformedInput  Client error. No state was mutated.
  ErrStorageFailure  Server error. If raised after the cache entry was
                     already taken, the merged record is lost and the device
                     must resend a full fragment pair.
  ErrArchiveFailure  Server error during maintenance. The live table is left
                     unmodified; the next threshold crossing retries.

SEE ALSO:
  - ingest/pipeline.go: Raises these
  - api/handlers.go: Maps these to HTTP statuses
*/
package telemetry

import "errors"

var (
	// ErrMalformedInput is returned when an envelope is missing its device
	// identifier or carries no properties.
	ErrMalformedInput = errors.New("malformed input")

	// ErrStorageFailure is returned when the store is unreachable or rejects
	// an operation (e.g., a record field with no matching column).
	ErrStorageFailure = errors.New("storage failure")

	// ErrArchiveFailure is returned when the archive-and-truncate sweep
	// fails. The record that triggered the sweep was already written.
	ErrArchiveFailure = errors.New("archive failure")
)
