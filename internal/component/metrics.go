package component

import "github.com/zclconf/go-cty/cty"

// Metrics maps metric names to boxed numeric values. Values stay boxed as
// cty numbers until a consumer explicitly unboxes them, mirroring how the
// trainer's backends hand out scalar tensors rather than plain floats.
type Metrics map[string]cty.Value

// Box wraps a plain float into the boxed numeric form stored in Metrics.
func Box(v float64) cty.Value { return cty.NumberFloatVal(v) }

// MergeMetrics combines two metric mappings; values from b override
// same-named values from a. Neither input is mutated.
func MergeMetrics(a, b Metrics) Metrics {
	out := make(Metrics, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
