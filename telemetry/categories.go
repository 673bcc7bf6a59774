/*
categories.go - Fixed key-sets for the two fragment categories

PURPOSE:
  Single source of truth for which property key belongs to which category.
  The telemetry table schema is derived from these sets (see store/sqlite),
  so adding a key here adds a column there.

INVARIANT:
  The two key-sets are disjoint by construction. keysDisjoint() is checked
  in tests, not at runtime.
*/
package telemetry

import "sort"

// sensorKeys is the fixed key-set of the sensor category.
var sensorKeys = map[string]bool{
	"temperature_indoor":  true,
	"temperature_outdoor": true,
	"humidity":            true,
	"pressure":            true,
	"co2":                 true,
	"illuminance":         true,
	"battery_level":       true,
}

// homeStateKeys is the fixed key-set of the homestate category.
var homeStateKeys = map[string]bool{
	"door_state":   true,
	"window_state": true,
	"lights_on":    true,
	"alarm_armed":  true,
	"hvac_mode":    true,
	"lock_engaged": true,
}

// categoryKeys maps each category to its key-set.
var categoryKeys = map[Category]map[string]bool{
	CategorySensor:    sensorKeys,
	CategoryHomeState: homeStateKeys,
}

// ColumnNames returns every telemetry field name across all categories in
// sorted order. The persistence schema and archive header derive from this.
func ColumnNames() []string {
	var cols []string
	for _, keys := range categoryKeys {
		for k := range keys {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
