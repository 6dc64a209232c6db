package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertscope/internal/clients/elasticsearch"
	"alertscope/internal/models"
	"alertscope/internal/normalize"
)

var fixedNow = time.Date(2024, 3, 10, 8, 45, 16, 0, time.UTC)

type fakeClient struct {
	pingErr  error
	names    []string
	namesErr error
	gotIndex string
	gotSize  int
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) ResponderNames(ctx context.Context, index string, size int) ([]string, error) {
	f.gotIndex, f.gotSize = index, size
	return f.names, f.namesErr
}

type fakeFetcher struct {
	result *models.ScrollResult
	query  elasticsearch.Query
}

func (f *fakeFetcher) FetchAll(ctx context.Context, query elasticsearch.Query) *models.ScrollResult {
	f.query = query
	return f.result
}

func alertDoc(id string, createdAt int64) models.RawAlert {
	return models.RawAlert{
		"parsedMessage": map[string]any{
			"attributes": map[string]any{
				"alertId":   id,
				"createdAt": float64(createdAt),
			},
		},
	}
}

func TestPing(t *testing.T) {
	o := New(&fakeClient{}, &fakeFetcher{}, nil, Options{Index: "entity.alert"}, nil)
	assert.NoError(t, o.Ping(context.Background()))

	o = New(&fakeClient{pingErr: errors.New("dial tcp: refused")}, &fakeFetcher{}, nil, Options{Index: "entity.alert"}, nil)
	err := o.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestGetAlerts(t *testing.T) {
	fetcher := &fakeFetcher{result: &models.ScrollResult{
		Documents: []models.RawAlert{alertDoc("a1", 0), alertDoc("a2", 60000)},
		Pages:     2,
		Complete:  true,
	}}
	o := New(&fakeClient{}, fetcher, normalize.NewMapper("", nil), Options{Index: "entity.alert"}, nil)

	params := elasticsearch.AlertsQueryParams{ResponderName: "sre", StartDate: "2024-01-01"}
	result, err := o.GetAlerts(context.Background(), params, fixedNow)
	require.NoError(t, err)

	assert.True(t, result.Complete)
	require.Equal(t, 2, result.Count())
	assert.Equal(t, "a1", result.Alerts[0]["AlertID"])
	assert.Equal(t, "1970/01/01 05:30:00", result.Alerts[0]["CreatedAt"])
	assert.Equal(t, "1970/01/01 05:31:00", result.Alerts[1]["CreatedAt"])
	assert.Equal(t, normalize.NotFound, result.Alerts[1]["Cluster"])

	assert.Equal(t, elasticsearch.BuildAlertsQuery(params, fixedNow), fetcher.query)
}

func TestGetAlertsNoMatches(t *testing.T) {
	fetcher := &fakeFetcher{result: &models.ScrollResult{Pages: 1, Complete: true}}
	o := New(&fakeClient{}, fetcher, nil, Options{Index: "entity.alert"}, nil)

	result, err := o.GetAlerts(context.Background(), elasticsearch.AlertsQueryParams{ResponderName: "sre"}, fixedNow)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Equal(t, 0, result.Count())
	assert.NotNil(t, result.Alerts)
}

func TestGetAlertsPartial(t *testing.T) {
	fetcher := &fakeFetcher{result: &models.ScrollResult{
		Documents: []models.RawAlert{alertDoc("a1", 0)},
		Pages:     1,
		Complete:  false,
		Err:       errors.New("scroll expired"),
	}}
	o := New(&fakeClient{}, fetcher, nil, Options{Index: "entity.alert"}, nil)

	result, err := o.GetAlerts(context.Background(), elasticsearch.AlertsQueryParams{ResponderName: "sre"}, fixedNow)
	require.NoError(t, err)
	assert.False(t, result.Complete)
	assert.Equal(t, 1, result.Count())
}

func TestGetAlertsFailureWithoutDocuments(t *testing.T) {
	fetcher := &fakeFetcher{result: &models.ScrollResult{Err: errors.New("index_not_found_exception")}}
	o := New(&fakeClient{}, fetcher, nil, Options{Index: "entity.alert"}, nil)

	result, err := o.GetAlerts(context.Background(), elasticsearch.AlertsQueryParams{ResponderName: "sre"}, fixedNow)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "index_not_found_exception")
}

func TestGetUniqueResponderNames(t *testing.T) {
	client := &fakeClient{names: []string{"payments", "alice@example.com", "sre"}}
	o := New(client, &fakeFetcher{}, nil, Options{Index: "entity.alert"}, nil)

	names, err := o.GetUniqueResponderNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"payments", "sre"}, names)
	assert.Equal(t, "entity.alert", client.gotIndex)
	assert.Equal(t, elasticsearch.DefaultAggregationSize, client.gotSize)
}

func TestGetUniqueResponderNamesFailureYieldsEmptyList(t *testing.T) {
	client := &fakeClient{namesErr: errors.New("search_phase_execution_exception")}
	o := New(client, &fakeFetcher{}, nil, Options{Index: "entity.alert", AggregationSize: 500}, nil)

	names, err := o.GetUniqueResponderNames(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
	assert.Equal(t, 500, client.gotSize)
}

func TestGetAlertsEmptyWindowSkipsSearch(t *testing.T) {
	fetcher := &fakeFetcher{}
	o := New(&fakeClient{}, fetcher, nil, Options{Index: "entity.alert"}, nil)

	params := elasticsearch.AlertsQueryParams{
		ResponderName: "sre",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-01",
		StartTime:     "06:00:00",
		EndTime:       "06:00:00",
	}
	result, err := o.GetAlerts(context.Background(), params, fixedNow)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Equal(t, 0, result.Count())
	assert.Nil(t, fetcher.query)
}
