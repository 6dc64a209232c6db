// Package orchestrator ties the Elasticsearch client, the scroll engine and
// the field mapper together behind the operations the HTTP layer serves.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alertscope/internal/clients/elasticsearch"
	"alertscope/internal/models"
	"alertscope/internal/normalize"
)

var (
	// ErrBackendUnavailable reports that the cluster did not answer a ping.
	ErrBackendUnavailable = errors.New("elasticsearch unavailable")
	// ErrQueryFailed reports that an alerts search could not be run.
	ErrQueryFailed = errors.New("elasticsearch query failed")
)

// AlertSearchBackend is what the HTTP handlers need from the alert store.
type AlertSearchBackend interface {
	Ping(ctx context.Context) error
	GetAlerts(ctx context.Context, params elasticsearch.AlertsQueryParams, now time.Time) (*models.AlertResult, error)
	GetUniqueResponderNames(ctx context.Context) ([]string, error)
}

// SearchClient is the subset of *elasticsearch.Client used outside scrolling.
type SearchClient interface {
	Ping(ctx context.Context) error
	ResponderNames(ctx context.Context, index string, size int) ([]string, error)
}

// AlertFetcher drains a query. *elasticsearch.Scroller implements it.
type AlertFetcher interface {
	FetchAll(ctx context.Context, query elasticsearch.Query) *models.ScrollResult
}

// Options configure an Orchestrator.
type Options struct {
	Index           string
	AggregationSize int
}

// Orchestrator coordinates alert retrieval and normalisation.
type Orchestrator struct {
	client  SearchClient
	fetcher AlertFetcher
	mapper  *normalize.Mapper
	opts    Options
	logger  *slog.Logger
}

var _ AlertSearchBackend = (*Orchestrator)(nil)

// New creates a new orchestrator
func New(client SearchClient, fetcher AlertFetcher, mapper *normalize.Mapper, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.AggregationSize <= 0 {
		opts.AggregationSize = elasticsearch.DefaultAggregationSize
	}
	if mapper == nil {
		mapper = normalize.NewMapper("", logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		fetcher: fetcher,
		mapper:  mapper,
		opts:    opts,
		logger:  logger,
	}
}

// Ping checks that the cluster is reachable.
func (o *Orchestrator) Ping(ctx context.Context) error {
	if err := o.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// GetAlerts fetches every alert matching params and maps each one to its
// readable form. When pagination stops early the alerts gathered so far are
// returned with Complete false; if nothing was gathered the failure is
// returned as an error instead.
func (o *Orchestrator) GetAlerts(ctx context.Context, params elasticsearch.AlertsQueryParams, now time.Time) (*models.AlertResult, error) {
	query := elasticsearch.BuildAlertsQuery(params, now)
	window := params.Range(now)

	if body, err := json.Marshal(query); err == nil {
		o.logger.Info("Executing alerts query",
			"responder", params.ResponderName,
			"start", window.Start,
			"end", window.End,
			"query", string(body),
		)
	}

	// A half-open window with equal bounds cannot match anything.
	if window.IsEmpty() {
		return &models.AlertResult{Alerts: []models.ReadableAlert{}, Complete: true}, nil
	}

	scroll := o.fetcher.FetchAll(ctx, query)
	if scroll.Err != nil && len(scroll.Documents) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, scroll.Err)
	}

	alerts := make([]models.ReadableAlert, 0, len(scroll.Documents))
	for _, doc := range scroll.Documents {
		alerts = append(alerts, o.mapper.Normalize(doc))
	}

	if !scroll.Complete {
		o.logger.Warn("Returning partial alert set",
			"responder", params.ResponderName,
			"pages", scroll.Pages,
			"alerts", len(alerts),
			"error", scroll.Err,
		)
	}

	return &models.AlertResult{Alerts: alerts, Complete: scroll.Complete}, nil
}

// GetUniqueResponderNames lists the distinct team responder names. Personal
// (email) responders are excluded. A failed aggregation is logged and yields
// an empty list, never an error. The slice is never nil.
func (o *Orchestrator) GetUniqueResponderNames(ctx context.Context) ([]string, error) {
	names, err := o.client.ResponderNames(ctx, o.opts.Index, o.opts.AggregationSize)
	if err != nil {
		o.logger.Error("Error fetching unique responder names",
			"index", o.opts.Index,
			"index_missing", elasticsearch.IsNotFound(err),
			"error", err,
		)
		return []string{}, nil
	}
	return elasticsearch.FilterResponderNames(names), nil
}
