/*
Package ingest drives the telemetry ingestion pipeline.

PURPOSE:
  One entry point, Ingest, runs the full chain for a decoded envelope:
  classify -> cache -> (on completeness) merge -> write -> maintain. The
  pipeline owns the result statuses the endpoint reports.

CONCURRENCY:
  A single pipeline mutex serializes the whole chain. The reconciliation
  cache has its own lock, but the decision "complete, so take-and-clear and
  merge" spans several cache calls and must not interleave with another
  request for the same device: without the pipeline lock, two concurrent
  fragments could both observe "incomplete" (no merge ever fires) or both
  observe "complete" (the merge runs twice). Ingestion volume is bounded by
  physical device count, so one global lock is acceptable. Serializing here
  also makes the maintainer's sweep effectively single-flight.

FAILURE SEMANTICS:
  A storage failure after take-and-clear loses the merged record; the device
  must resend a full fragment pair. This is an accepted gap, not an
  exactly-once guarantee. An archive failure is reported even though the
  record that triggered it was written; the live table is untouched and the
  next threshold crossing retries.

SEE ALSO:
  - telemetry/: Classifier, cache, merge engine
  - archive/maintainer.go: The production Maintainer
  - api/handlers.go: The HTTP boundary calling Ingest
*/
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/homelink/telemetry-engine/telemetry"
)

// Maintainer runs one archive-and-truncate check after a successful write.
// Implementations must preserve "write completes before the maintainer
// observes the row it wrote"; the production implementation is synchronous.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// Status of one ingestion call.
type Status string

const (
	// StatusSuccess: the envelope completed the device and a merged record
	// was written.
	StatusSuccess Status = "success"

	// StatusWaiting: the device is still missing at least one category.
	// Not an error.
	StatusWaiting Status = "waiting"
)

// Result reports what one ingestion call did.
type Result struct {
	Status Status

	// Inserted holds the written field names, sorted. Success only.
	Inserted []string

	// CachedCategories holds the category names pending for the device,
	// sorted. Waiting only.
	CachedCategories []string
}

// Pipeline wires the classifier, cache, writer, and maintainer together.
type Pipeline struct {
	mu         sync.Mutex
	cache      *telemetry.Cache
	writer     telemetry.Writer
	maintainer Maintainer
	log        *logrus.Logger
}

// New creates a pipeline. maintainer may be nil (no archival, tests only).
func New(cache *telemetry.Cache, writer telemetry.Writer, maintainer Maintainer, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		cache:      cache,
		writer:     writer,
		maintainer: maintainer,
		log:        log,
	}
}

// Ingest runs the full chain for one envelope. Malformed envelopes fail
// before any state is touched.
func (p *Pipeline) Ingest(ctx context.Context, env telemetry.TelemetryEnvelope) (Result, error) {
	if env.Device == "" {
		return Result{}, fmt.Errorf("%w: missing device identifier", telemetry.ErrMalformedInput)
	}
	if len(env.Properties) == 0 {
		return Result{}, fmt.Errorf("%w: missing properties", telemetry.ErrMalformedInput)
	}
	device := telemetry.DeviceID(env.Device)

	p.mu.Lock()
	defer p.mu.Unlock()

	fragments := telemetry.Classify(env.Properties)
	for cat, frag := range fragments {
		p.cache.Put(device, cat, frag)
	}

	if !p.cache.IsComplete(device, telemetry.Categories) {
		cached := categoryNames(p.cache.Present(device))
		p.log.WithFields(logrus.Fields{
			"device": env.Device,
			"cached": cached,
		}).Debug("fragment cached, device incomplete")
		return Result{Status: StatusWaiting, CachedCategories: cached}, nil
	}

	entry := p.cache.TakeAndClear(device)
	record := telemetry.Merge(device, entry)

	if err := p.writer.Append(ctx, record); err != nil {
		// The cache entry is already gone; the device must resend both
		// fragments.
		p.log.WithError(err).WithField("device", env.Device).Error("telemetry write failed")
		return Result{}, err
	}

	inserted := record.FieldNames()
	p.log.WithFields(logrus.Fields{
		"device": env.Device,
		"fields": inserted,
	}).Info("merged record written")

	if p.maintainer != nil {
		if err := p.maintainer.Maintain(ctx); err != nil {
			return Result{}, err
		}
	}

	return Result{Status: StatusSuccess, Inserted: inserted}, nil
}

func categoryNames(cats []telemetry.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}
