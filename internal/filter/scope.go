package filter

import (
	"encoding/json"

	"github.com/rendis/traceviz/pkg/schema"
)

// stepScope converts a step into the map exposed to filter expressions as
// the `step` variable. Round-tripping through JSON keeps the expression
// view aligned with the wire format, so filters use the same field names
// a trace file does.
func stepScope(step *schema.VisualizerStep) map[string]any {
	raw, err := json.Marshal(step)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
