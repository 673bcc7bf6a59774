/*
classifier.go - Fragment Classifier

PURPOSE:
  Partitions an incoming flat properties map into named category fragments
  by static key-set membership. Properties matching no category are silently
  dropped.

PROPERTIES:
  - Pure function: no side effects, deterministic.
  - Empty input is permitted and yields zero fragments.
  - A category appears in the output only if at least one of its keys is
    present in the input.
*/
package telemetry

// Classify partitions properties into category fragments. Keys belonging to
// no category are dropped. Categories with no matching key are absent from
// the result.
func Classify(properties map[string]interface{}) map[Category]Fragment {
	fragments := make(map[Category]Fragment)
	for key, value := range properties {
		for _, cat := range Categories {
			if categoryKeys[cat][key] {
				if fragments[cat] == nil {
					fragments[cat] = make(Fragment)
				}
				fragments[cat][key] = value
				break
			}
		}
	}
	return fragments
}
