// Package models defines the shared core data structures used throughout alertscope.
package models

// RawAlert is a single hit's _source as decoded from the alert index.
// It has no fixed schema; numbers are kept as json.Number.
type RawAlert = map[string]any

// ReadableAlert maps canonical field names (Cluster, Severity, AlertID, ...)
// to display-ready values.
type ReadableAlert map[string]any

// Has reports whether the field is present, even with a nil value.
func (a ReadableAlert) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// DateTimeRange is a half-open [Start, End) interval in the index's native
// YYYY/MM/DD HH:MM:SS format.
type DateTimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsEmpty returns true if the range cannot contain any instant. Only the
// degenerate Start == End case is detected; ordering is left to the index.
func (r DateTimeRange) IsEmpty() bool {
	return r.Start == r.End
}

// ScrollResult is what the scroll engine returns after draining a query.
// Complete is false when a page fetch failed; Documents then holds every
// hit accumulated before the failure and Err the cause.
type ScrollResult struct {
	Documents []RawAlert
	Pages     int
	Complete  bool
	Err       error
}

// AlertResult carries normalised alerts back to the HTTP layer.
type AlertResult struct {
	Alerts   []ReadableAlert
	Complete bool
}

// Count returns the number of alerts in the result.
func (r *AlertResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Alerts)
}
