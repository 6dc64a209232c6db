package elasticsearch

import (
	"strings"
	"time"

	"alertscope/internal/clock"
	"alertscope/internal/models"
)

const (
	// ResponderField is the keyword field holding responder team names.
	ResponderField = "parsedMessage.attributes.responders.name.keyword"
	// CreatedAtField is the alert creation time in the index's native format.
	CreatedAtField = "parsedMessage.attributes.createdAtTime"

	// ResponderNamesAggregation names the composite aggregation over ResponderField.
	ResponderNamesAggregation = "unique_responder_names"
	responderNameSource       = "responder_name"

	// DefaultAggregationSize covers every responder in one composite page.
	DefaultAggregationSize = 10000
)

// Query is a search request body.
type Query map[string]any

// AlertsQueryParams are the raw filter inputs for an alerts search. Empty
// fields take their defaults when the query is built.
type AlertsQueryParams struct {
	ResponderName string
	StartDate     string
	EndDate       string
	StartTime     string
	EndTime       string
}

// Range resolves the parameters into the half-open creation time window.
// StartDate defaults to today and EndDate to StartDate; StartTime defaults
// to midnight and EndTime to the current time, all in IST.
func (p AlertsQueryParams) Range(now time.Time) models.DateTimeRange {
	startDate := p.StartDate
	if startDate == "" {
		startDate = clock.Today(now)
	}
	endDate := p.EndDate
	if endDate == "" {
		endDate = startDate
	}
	startTime := p.StartTime
	if startTime == "" {
		startTime = clock.StartOfDay
	}
	endTime := p.EndTime
	if endTime == "" {
		endTime = clock.TimeOfDay(now)
	}

	return models.DateTimeRange{
		Start: clock.JoinDateTime(startDate, startTime),
		End:   clock.JoinDateTime(endDate, endTime),
	}
}

// BuildAlertsQuery matches alerts for one responder created in
// [start, end). The upper bound is exclusive: an alert created exactly at
// the end instant is not returned, and start == end matches nothing.
func BuildAlertsQuery(p AlertsQueryParams, now time.Time) Query {
	r := p.Range(now)

	return Query{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"term": map[string]any{
							ResponderField: p.ResponderName,
						},
					},
					map[string]any{
						"range": map[string]any{
							CreatedAtField: map[string]any{
								"gte": r.Start,
								"lt":  r.End,
							},
						},
					},
				},
			},
		},
	}
}

// BuildUniqueResponderNamesQuery returns a zero-hit composite aggregation
// over ResponderField. size should exceed the number of distinct responders;
// the after_key is never followed.
func BuildUniqueResponderNamesQuery(size int) Query {
	if size <= 0 {
		size = DefaultAggregationSize
	}

	return Query{
		"size": 0,
		"aggs": map[string]any{
			ResponderNamesAggregation: map[string]any{
				"composite": map[string]any{
					"size": size,
					"sources": []any{
						map[string]any{
							responderNameSource: map[string]any{
								"terms": map[string]any{
									"field": ResponderField,
								},
							},
						},
					},
				},
			},
		},
	}
}

// FilterResponderNames drops names that look like email addresses.
func FilterResponderNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, "@") {
			continue
		}
		out = append(out, name)
	}
	return out
}
