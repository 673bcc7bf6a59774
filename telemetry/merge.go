/*
merge.go - Merge Engine

PURPOSE:
  Combines a complete DeviceCacheEntry into one flat MergedRecord. The
  caller must obtain the entry via Cache.TakeAndClear so that a concurrent
  late fragment starts a fresh cache entry rather than corrupting the one
  being merged.

UNION ORDER:
  Fragments are unioned in the fixed order of Categories. The key-sets are
  disjoint by construction, so collisions do not occur in practice; if one
  did, the later category would win (documented last-writer-wins).
*/
package telemetry

import "time"

// Merge unions all category fragments of a complete cache entry into one
// record, stamped with the current time.
func Merge(device DeviceID, entry DeviceCacheEntry) MergedRecord {
	fields := make(map[string]interface{})
	for _, cat := range Categories {
		for k, v := range entry[cat] {
			fields[k] = v
		}
	}
	return MergedRecord{
		Device:    device,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
}
