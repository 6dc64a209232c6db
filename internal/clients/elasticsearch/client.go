// Package elasticsearch provides the search backend client, query builders and
// the scroll engine used to read alert documents.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goes "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"alertscope/internal/models"
)

// Options configure the shared client.
type Options struct {
	Hosts    []string
	Username string
	Password string
	// Timeout bounds how long a single request may wait for response headers.
	Timeout time.Duration
}

// Client wraps a go-elasticsearch client. It is safe for concurrent use and
// meant to be created once per process.
type Client struct {
	es     *goes.Client
	logger *slog.Logger
}

// ResponseError is a non-2xx answer from Elasticsearch.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" && e.Reason == "" {
		return fmt.Sprintf("elasticsearch returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch returned status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// IsNotFound reports whether err is a 404 from Elasticsearch, such as a
// missing index or an expired scroll.
func IsNotFound(err error) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// NewClient creates a new Elasticsearch client. Retries are disabled: a
// failed request is reported to the caller as-is.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Hosts) == 0 {
		return nil, errors.New("at least one elasticsearch host is required")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Timeout > 0 {
		transport.ResponseHeaderTimeout = opts.Timeout
	}

	es, err := goes.NewClient(goes.Config{
		Addresses:    opts.Hosts,
		Username:     opts.Username,
		Password:     opts.Password,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Client{
		es:     es,
		logger: logger,
	}, nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return newResponseError(res)
	}
	return nil
}

// OpenScroll runs query against index and opens a scroll cursor kept alive
// for ttl between pages.
func (c *Client) OpenScroll(ctx context.Context, index string, query Query, size int, ttl time.Duration) (*Page, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithScroll(ttl),
		c.es.Search.WithSize(size),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return decodePage(res)
}

// NextPage fetches the page following scrollID and extends the cursor by ttl.
func (c *Client) NextPage(ctx context.Context, scrollID string, ttl time.Duration) (*Page, error) {
	body, err := json.Marshal(map[string]string{
		"scroll":    formatTTL(ttl),
		"scroll_id": scrollID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scroll request: %w", err)
	}

	res, err := c.es.Scroll(
		c.es.Scroll.WithContext(ctx),
		c.es.Scroll.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("scroll request failed: %w", err)
	}
	return decodePage(res)
}

// ClearScroll releases the cursor identified by scrollID.
func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	body, err := json.Marshal(map[string][]string{"scroll_id": {scrollID}})
	if err != nil {
		return fmt.Errorf("failed to encode clear scroll request: %w", err)
	}

	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("clear scroll request failed: %w", err)
	}
	defer res.Body.Close()

	// An already expired cursor is reported as 404; it is released either way.
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return newResponseError(res)
	}
	return nil
}

// ResponderNames runs the composite aggregation built by
// BuildUniqueResponderNamesQuery and returns every bucket key unfiltered.
func (c *Client) ResponderNames(ctx context.Context, index string, size int) ([]string, error) {
	body, err := json.Marshal(BuildUniqueResponderNamesQuery(size))
	if err != nil {
		return nil, fmt.Errorf("failed to encode aggregation: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregation request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, newResponseError(res)
	}

	var resp SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation response: %w", err)
	}

	raw, ok := resp.Aggregations[ResponderNamesAggregation]
	if !ok {
		return []string{}, nil
	}

	var agg CompositeAggregation
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil, fmt.Errorf("failed to decode %s aggregation: %w", ResponderNamesAggregation, err)
	}

	names := make([]string, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		name, ok := b.Key[responderNameSource].(string)
		if !ok {
			c.logger.Warn("Skipping responder bucket without a string key", "key", b.Key)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// decodePage reads a search or scroll response into a Page, keeping numbers
// as json.Number so epoch milliseconds survive intact.
func decodePage(res *esapi.Response) (*Page, error) {
	defer res.Body.Close()

	if res.IsError() {
		return nil, newResponseError(res)
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()

	var resp SearchResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	page := &Page{
		ScrollID:  resp.ScrollID,
		Documents: make([]models.RawAlert, 0, len(resp.Hits.Hits)),
	}
	for _, hit := range resp.Hits.Hits {
		page.Documents = append(page.Documents, hit.Source)
	}
	return page, nil
}

func newResponseError(res *esapi.Response) error {
	re := &ResponseError{StatusCode: res.StatusCode}

	body, err := io.ReadAll(res.Body)
	if err != nil || len(body) == 0 {
		return re
	}

	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		re.Reason = strings.TrimSpace(string(body))
		return re
	}

	var cause errorCause
	if err := json.Unmarshal(payload.Error, &cause); err == nil {
		re.Type = cause.Type
		re.Reason = cause.Reason
		return re
	}

	var reason string
	if err := json.Unmarshal(payload.Error, &reason); err == nil {
		re.Reason = reason
	}
	return re
}

// formatTTL renders ttl as an Elasticsearch time unit.
func formatTTL(ttl time.Duration) string {
	switch {
	case ttl%time.Minute == 0:
		return fmt.Sprintf("%dm", int64(ttl/time.Minute))
	case ttl%time.Second == 0:
		return fmt.Sprintf("%ds", int64(ttl/time.Second))
	default:
		return fmt.Sprintf("%dms", ttl.Milliseconds())
	}
}
