/*
Package archive implements the archive-and-truncate maintainer.

PURPOSE:
  After every successful write, the pipeline invokes the maintainer. Once
  the live telemetry table has grown past the configured row-count
  threshold, the maintainer dumps all rows (oldest-first) to a timestamped
  CSV file and clears the table. At or below the threshold it does nothing,
  so the table can sit at exactly threshold rows until the next write.

THIS IS NOT AN EVICTION POLICY:
  No LRU, no per-record expiry. It is a bulk archive-and-reset triggered by
  an absolute count threshold, run synchronously on the request that crossed
  it. A slow archive write directly delays that request's response.

ATOMICITY:
  The count/read/clear sequence runs inside a single store transaction (see
  telemetry.Sweeper). A failed file write aborts the sweep and leaves the
  live table unmodified; the next threshold crossing retries.

FILE FORMAT:
  Comma-delimited, one header row of column names, then one row per record,
  oldest first. Numeric values are rendered through decimal so floats never
  come out in exponent notation. Filenames embed the wall-clock time to the
  second (telemetry_20260301_150405.csv); the threshold check rate-limits
  triggering, so collisions don't occur in normal operation.

SEE ALSO:
  - store/sqlite/sqlite.go: SweepTelemetry, the transactional half
  - ingest/pipeline.go: The caller
*/
package archive

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/homelink/telemetry-engine/telemetry"
)

// RecordRunFunc persists bookkeeping for a completed sweep. Optional.
type RecordRunFunc func(ctx context.Context, id, filename string, rowCount int) error

// Maintainer writes threshold-triggered CSV archives of the live telemetry
// table and truncates it.
type Maintainer struct {
	sweeper   telemetry.Sweeper
	dir       string
	threshold int
	log       *logrus.Logger
	recordRun RecordRunFunc
	now       func() time.Time
}

// Option configures a Maintainer.
type Option func(*Maintainer)

// WithRunRecorder persists a bookkeeping row for every completed sweep.
func WithRunRecorder(fn RecordRunFunc) Option {
	return func(m *Maintainer) { m.recordRun = fn }
}

// WithClock overrides the filename clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *Maintainer) { m.now = now }
}

// New creates a maintainer archiving into dir once the live table holds at
// least threshold rows.
func New(sweeper telemetry.Sweeper, dir string, threshold int, log *logrus.Logger, opts ...Option) *Maintainer {
	m := &Maintainer{
		sweeper:   sweeper,
		dir:       dir,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Maintain runs one archive-and-truncate check. Errors wrap
// telemetry.ErrArchiveFailure; on error the live table is unmodified.
func (m *Maintainer) Maintain(ctx context.Context) error {
	filename := fmt.Sprintf("telemetry_%s.csv", m.now().UTC().Format("20060102_150405"))
	path := filepath.Join(m.dir, filename)

	var dumped bool
	swept, rowCount, err := m.sweeper.SweepTelemetry(ctx, m.threshold, func(columns []string, rows [][]any) error {
		if err := writeCSV(path, columns, rows); err != nil {
			return err
		}
		dumped = true
		return nil
	})
	if err != nil {
		if dumped {
			// The sweep rolled back after the file was written; don't leave
			// an archive that claims rows still live in the table.
			os.Remove(path)
		}
		m.log.WithError(err).WithField("archive_file", filename).Error("archive sweep failed")
		return fmt.Errorf("%w: %w", telemetry.ErrArchiveFailure, err)
	}
	if !swept {
		return nil
	}

	runID := uuid.NewString()
	m.log.WithFields(logrus.Fields{
		"run_id":       runID,
		"archive_file": filename,
		"rows":         rowCount,
	}).Info("archived and truncated telemetry table")

	if m.recordRun != nil {
		if err := m.recordRun(ctx, runID, filename, rowCount); err != nil {
			// The sweep itself committed; bookkeeping is best-effort.
			m.log.WithError(err).Warn("failed to record archive run")
		}
	}
	return nil
}

// writeCSV writes the archive file: a header row of column names followed by
// one row per record.
func writeCSV(path string, columns []string, rows [][]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row {
			record[i] = renderValue(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write archive row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return f.Close()
}

// renderValue formats one column value for the archive. Numerics go through
// decimal so the output is plain decimal notation regardless of magnitude.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return decimal.NewFromInt(int64(x)).String()
	case int64:
		return decimal.NewFromInt(x).String()
	case float64:
		return decimal.NewFromFloat(x).String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
