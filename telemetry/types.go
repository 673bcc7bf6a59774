/*
types.go - Core domain types for telemetry reconciliation

PURPOSE:
  Defines the data model of the ingestion pipeline: envelopes arriving from
  devices, category-scoped fragments, and the merged records that get
  persisted.

LIFECYCLE:
  TelemetryEnvelope  Transient. Decoded from the request body, never stored.
  Fragment           Ephemeral. Owned by the reconciliation cache entry for
                     its device while the device is waiting for completeness.
  MergedRecord       The union of all cached fragments for one device, plus
                     a timestamp assigned at merge time. This is what the
                     store persists.

SEE ALSO:
  - classifier.go: Partitions envelope properties into fragments
  - cache.go: Holds fragments until completeness
  - merge.go: Produces MergedRecord from a complete cache entry
*/
package telemetry

import "time"

// DeviceID identifies one reporting device.
type DeviceID string

// Category names one fragment class. Exactly two categories exist; see
// categories.go for their fixed key-sets.
type Category string

const (
	// CategorySensor covers environmental sensor readings.
	CategorySensor Category = "sensor"

	// CategoryHomeState covers actuator and home-automation state fields.
	CategoryHomeState Category = "homestate"
)

// Categories lists all categories in merge order. The order is load-bearing:
// merge.go unions fragments in this order, so on a (never expected) key
// collision the later category wins. Last-writer-wins is the documented
// behavior, not an accident of map iteration.
var Categories = []Category{CategorySensor, CategoryHomeState}

// TelemetryEnvelope is the raw inbound payload from a device.
type TelemetryEnvelope struct {
	Device     string                 `json:"device"`
	Properties map[string]interface{} `json:"properties"`
}

// Fragment is a category-scoped subset of one device's reported properties.
type Fragment map[string]interface{}

// MergedRecord is the union of all category fragments for one device at
// merge time. Fields maps column names to values; CreatedAt is assigned
// when the merge happens, not when the row is written.
type MergedRecord struct {
	Device    DeviceID
	Fields    map[string]interface{}
	CreatedAt time.Time
}

// FieldNames returns the record's field names in sorted order, for
// deterministic responses and logs.
func (r MergedRecord) FieldNames() []string {
	return sortedKeys(r.Fields)
}
