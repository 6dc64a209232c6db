package elasticsearch

import (
	"encoding/json"

	"alertscope/internal/models"
)

// Page is one batch of hits from a search or scroll request.
type Page struct {
	ScrollID  string
	Documents []models.RawAlert
}

// SearchResponse is the subset of the search/scroll response body we read.
type SearchResponse struct {
	ScrollID     string                     `json:"_scroll_id"`
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Hits         HitsEnvelope               `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// HitsEnvelope wraps the hit list.
type HitsEnvelope struct {
	Hits []Hit `json:"hits"`
}

// Hit is a single matching document.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Source models.RawAlert `json:"_source"`
}

// CompositeAggregation is the result of a composite aggregation.
type CompositeAggregation struct {
	AfterKey map[string]any `json:"after_key"`
	Buckets  []struct {
		Key      map[string]any `json:"key"`
		DocCount int64          `json:"doc_count"`
	} `json:"buckets"`
}

// errorResponse is the body Elasticsearch returns with non-2xx statuses.
// "error" is an object for most failures and a bare string for a few.
type errorResponse struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
