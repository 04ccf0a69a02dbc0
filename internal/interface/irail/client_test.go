package irail

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/pkg/logger"
)

const departuresPayload = `{
  "version": "1.3",
  "timestamp": "1700000000",
  "station": "Brussels-Central",
  "departures": {
    "number": "2",
    "departure": [
      {
        "id": "0",
        "delay": "120",
        "station": "Antwerp-Central",
        "time": "1700000400",
        "vehicle": "BE.NMBS.IC1832",
        "vehicleinfo": {"name": "BE.NMBS.IC1832", "shortname": "IC 1832", "number": "1832", "type": "IC"},
        "platform": "3",
        "platforminfo": {"name": "3", "normal": "1"},
        "canceled": "0",
        "left": "0",
        "isExtra": "0"
      },
      {
        "id": "1",
        "delay": 0,
        "station": "Leuven",
        "time": 1700000700,
        "vehicle": "BE.NMBS.S2045",
        "vehicleinfo": {"name": "BE.NMBS.S2045", "shortname": "S 2045"},
        "platform": "?",
        "platforminfo": {"name": "?", "normal": "1"},
        "canceled": true,
        "left": "1"
      }
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *LiveboardClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newLiveboardClient(ClientConfig{
		BaseURL:   server.URL,
		UserAgent: "train-schedule-service-test",
		Timeout:   timeout,
	}, logger.NewNopLogger())
}

func TestFetchLiveboardDepartures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/liveboard/", r.URL.Path)
		assert.Equal(t, "Brussels-Central", r.URL.Query().Get("station"))
		assert.Equal(t, "departure", r.URL.Query().Get("arrdep"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "train-schedule-service-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(departuresPayload))
	}, time.Second)

	entries, err := client.FetchLiveboard(context.Background(), "Brussels-Central", entity.DirectionDeparture)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, entity.RawScheduleEntry{
		Station:       "Brussels-Central",
		OtherStation:  "Antwerp-Central",
		TrainID:       "BE.NMBS.IC1832",
		TrainName:     "IC 1832",
		Platform:      "3",
		ScheduledTime: "1700000400",
		Delay:         "120",
		DelayUnit:     entity.DelaySeconds,
		Canceled:      "0",
	}, entries[0])

	assert.Equal(t, "1700000700", entries[1].ScheduledTime)
	assert.Equal(t, "0", entries[1].Delay)
	assert.Equal(t, "1", entries[1].Canceled)
	assert.Equal(t, "?", entries[1].Platform)
	assert.Equal(t, "left", entries[1].Status)
}

func TestFetchLiveboardArrivalsUsesArrivalList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "arrival", r.URL.Query().Get("arrdep"))
		w.Write([]byte(`{"station":"Leuven","arrivals":{"number":"1","arrival":[
			{"station":"Liege-Guillemins","time":"1700000000","delay":"0","vehicle":"BE.NMBS.IC520","canceled":"0","arrived":"1"}
		]}}`))
	}, time.Second)

	entries, err := client.FetchLiveboard(context.Background(), "Leuven", entity.DirectionArrival)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Liege-Guillemins", entries[0].OtherStation)
	assert.Equal(t, "arrived", entries[0].Status)
}

func TestFetchLiveboardEmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"station":"Leuven","departures":{"number":"0"}}`))
	}, time.Second)

	entries, err := client.FetchLiveboard(context.Background(), "Leuven", entity.DirectionDeparture)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchLiveboardNon2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":404,"message":"Could not find station Nowhere"}`, http.StatusNotFound)
	}, time.Second)

	_, err := client.FetchLiveboard(context.Background(), "Nowhere", entity.DirectionDeparture)
	require.Error(t, err)

	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "Nowhere", fetchErr.Station)
	assert.Equal(t, entity.DirectionDeparture, fetchErr.Direction)

	var timeoutErr *entity.TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestFetchLiveboardMalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"departures": [`))
	}, time.Second)

	_, err := client.FetchLiveboard(context.Background(), "Leuven", entity.DirectionDeparture)

	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "Leuven", fetchErr.Station)
}

func TestFetchLiveboardTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := client.FetchLiveboard(context.Background(), "Leuven", entity.DirectionArrival)
	require.Error(t, err)

	var timeoutErr *entity.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "Leuven", timeoutErr.Station)
	assert.Equal(t, entity.DirectionArrival, timeoutErr.Direction)

	var fetchErr *entity.FetchError
	assert.True(t, errors.As(err, &fetchErr), "a timeout is also a fetch error")
}

func TestFetchLiveboardInvalidDirection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, time.Second)

	_, err := client.FetchLiveboard(context.Background(), "Leuven", entity.Direction("SIDEWAYS"))
	var fetchErr *entity.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
