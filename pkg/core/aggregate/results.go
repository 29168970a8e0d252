package aggregate

import (
	"univ_financials/pkg/core/extract"
)

// Results holds one ExtractionResult per catalog field, in catalog order.
type Results struct {
	order []string
	byKey map[string]extract.ExtractionResult
}

// NewResults indexes results by field key. Later duplicates replace earlier
// ones but keep the original position.
func NewResults(results []extract.ExtractionResult) *Results {
	r := &Results{byKey: make(map[string]extract.ExtractionResult, len(results))}
	for _, res := range results {
		if _, seen := r.byKey[res.Field]; !seen {
			r.order = append(r.order, res.Field)
		}
		r.byKey[res.Field] = res
	}
	return r
}

// Get returns the result for key.
func (r *Results) Get(key string) (extract.ExtractionResult, bool) {
	res, ok := r.byKey[key]
	return res, ok
}

// Value returns the resolved amount for key.
func (r *Results) Value(key string) (int64, bool) {
	res, ok := r.byKey[key]
	if !ok {
		return 0, false
	}
	return res.Value()
}

// Keys lists field keys in order.
func (r *Results) Keys() []string {
	return append([]string(nil), r.order...)
}

// All returns the results in order.
func (r *Results) All() []extract.ExtractionResult {
	out := make([]extract.ExtractionResult, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Failed lists keys whose result is not successful.
func (r *Results) Failed() []string {
	var keys []string
	for _, key := range r.order {
		if !r.byKey[key].Success {
			keys = append(keys, key)
		}
	}
	return keys
}

// FromSource lists keys whose result came from source.
func (r *Results) FromSource(source extract.Source) []string {
	var keys []string
	for _, key := range r.order {
		if res := r.byKey[key]; res.Success && res.Source == source {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len is the number of fields.
func (r *Results) Len() int {
	return len(r.order)
}
