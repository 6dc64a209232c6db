// Package clock holds the fixed India Standard Time zone and the date/time
// layouts shared by request defaults, query construction and field mapping.
package clock

import (
	"strings"
	"time"
)

// IST is a fixed UTC+05:30 zone. It is not looked up from the tz database
// so the service behaves the same on hosts without zoneinfo.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	// IndexLayout is the native date format of the alert index.
	IndexLayout = "2006/01/02 15:04:05"
	// DateLayout is the format of the start_date/end_date request parameters.
	DateLayout = "2006-01-02"
	// TimeLayout is the format of the start_time/end_time request parameters.
	TimeLayout = "15:04:05"
	// StartOfDay is the default start_time.
	StartOfDay = "00:00:00"
)

// FromEpochMillis converts epoch milliseconds to an instant in IST.
func FromEpochMillis(ms float64) time.Time {
	sec := int64(ms / 1000)
	nsec := int64((ms - float64(sec)*1000) * float64(time.Millisecond))
	return time.Unix(sec, nsec).In(IST)
}

// FormatIndex renders t in IST using IndexLayout.
func FormatIndex(t time.Time) string {
	return t.In(IST).Format(IndexLayout)
}

// ParseIndex parses a wall-clock IndexLayout string as IST.
func ParseIndex(s string) (time.Time, error) {
	return time.ParseInLocation(IndexLayout, s, IST)
}

// Today returns the IST calendar date of now in DateLayout.
func Today(now time.Time) string {
	return now.In(IST).Format(DateLayout)
}

// TimeOfDay returns the IST wall-clock time of now in TimeLayout.
func TimeOfDay(now time.Time) string {
	return now.In(IST).Format(TimeLayout)
}

// JoinDateTime combines a YYYY-MM-DD date and an HH:MM:SS time into the
// index's YYYY/MM/DD HH:MM:SS format. Inputs are not validated; the index
// rejects malformed bounds.
func JoinDateTime(date, tod string) string {
	return strings.ReplaceAll(date, "-", "/") + " " + tod
}
