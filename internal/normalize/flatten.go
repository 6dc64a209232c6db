// Package normalize turns raw alert documents into flat records and then into
// the fixed, human-readable alert schema served by the API.
package normalize

import (
	"sort"
	"strconv"
	"strings"
)

// Separator joins parent and child path segments in flattened keys.
const Separator = "_"

// FlatRecord is an insertion-ordered mapping from flattened path to scalar
// value. It never holds nested maps or slices.
type FlatRecord struct {
	keys   []string
	values map[string]any
}

// NewFlatRecord returns an empty record.
func NewFlatRecord() *FlatRecord {
	return &FlatRecord{values: make(map[string]any)}
}

// Set stores value under key. Re-setting a key overwrites the value but keeps
// its original position.
func (r *FlatRecord) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *FlatRecord) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *FlatRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of entries.
func (r *FlatRecord) Len() int {
	return len(r.keys)
}

// Map returns a copy of the record as a plain map.
func (r *FlatRecord) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Flatten collapses a decoded JSON value into a FlatRecord. Object members
// extend the path with "name_", array elements with "index_", and every
// scalar (null included) is emitted under its path minus the trailing
// separator. Object members are visited in lexicographic order since decoded
// maps carry no document order; array elements keep their index order.
func Flatten(doc any) *FlatRecord {
	rec := NewFlatRecord()
	flatten(rec, doc, "")
	return rec
}

func flatten(rec *FlatRecord, v any, prefix string) {
	switch x := v.(type) {
	case map[string]any:
		names := make([]string, 0, len(x))
		for name := range x {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			flatten(rec, x[name], prefix+name+Separator)
		}
	case []any:
		for i, elem := range x {
			flatten(rec, elem, prefix+strconv.Itoa(i)+Separator)
		}
	default:
		rec.Set(strings.TrimSuffix(prefix, Separator), x)
	}
}
