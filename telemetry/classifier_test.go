/*
classifier_test.go - Unit tests for the Fragment Classifier

Tests for:
- Key-set partitioning into sensor/homestate fragments
- Silent dropping of unknown keys
- Purity (same input, same output)
- Disjointness of the category key-sets
*/
package telemetry

import (
	"reflect"
	"testing"
)

func TestClassify_PartitionsByKeySet(t *testing.T) {
	// GIVEN: A properties map spanning both categories plus an unknown key
	props := map[string]interface{}{
		"temperature_indoor": 21.5,
		"humidity":           40,
		"door_state":         "closed",
		"lights_on":          true,
		"favorite_color":     "blue", // no category
	}

	// WHEN: Classifying
	fragments := Classify(props)

	// THEN: Sensor and homestate fragments hold their keys, unknown dropped
	if len(fragments) != 2 {
		t.Fatalf("Expected 2 fragments, got %d", len(fragments))
	}
	sensor := fragments[CategorySensor]
	if sensor["temperature_indoor"] != 21.5 || sensor["humidity"] != 40 {
		t.Errorf("Sensor fragment wrong: %v", sensor)
	}
	if len(sensor) != 2 {
		t.Errorf("Sensor fragment has extra keys: %v", sensor)
	}
	home := fragments[CategoryHomeState]
	if home["door_state"] != "closed" || home["lights_on"] != true {
		t.Errorf("Homestate fragment wrong: %v", home)
	}
	for _, frag := range fragments {
		if _, ok := frag["favorite_color"]; ok {
			t.Error("Unknown key was not dropped")
		}
	}
}

func TestClassify_EmptyMap(t *testing.T) {
	fragments := Classify(map[string]interface{}{})
	if len(fragments) != 0 {
		t.Fatalf("Expected no fragments from empty map, got %v", fragments)
	}
}

func TestClassify_SingleCategory(t *testing.T) {
	// GIVEN: Only sensor keys
	fragments := Classify(map[string]interface{}{"co2": 600})

	// THEN: Only the sensor fragment exists
	if len(fragments) != 1 {
		t.Fatalf("Expected 1 fragment, got %d", len(fragments))
	}
	if _, ok := fragments[CategoryHomeState]; ok {
		t.Error("Homestate fragment should be absent")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	props := map[string]interface{}{
		"temperature_indoor": 21,
		"door_state":         "open",
	}
	first := Classify(props)
	second := Classify(props)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classification not deterministic: %v vs %v", first, second)
	}
}

func TestCategoryKeySets_Disjoint(t *testing.T) {
	for k := range sensorKeys {
		if homeStateKeys[k] {
			t.Errorf("Key %q belongs to both categories", k)
		}
	}
}
