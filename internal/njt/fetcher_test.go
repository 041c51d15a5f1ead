package njt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nyBoard = `{
  "STATION_2CHAR": "NY",
  "STATIONNAME": "New York",
  "ITEMS": [
    {"SCHED_DEP_DATE": "19-Oct-2026 08:10:00 AM", "DESTINATION": "Trenton", "TRACK": "3", "LINE": "Northeast Corrdr", "TRAIN_ID": "3821", "STATUS": "ON TIME"},
    {"SCHED_DEP_DATE": "19-Oct-2026 08:25:00 AM", "DESTINATION": "Dover", "TRACK": "", "LINE": "Morristown Line", "TRAIN_ID": "6621", "STATUS": "DELAYED"}
  ]
}`

const trBoard = `{"STATION_2CHAR": "TR", "STATIONNAME": "Trenton", "ITEMS": [
  {"SCHED_DEP_DATE": "19-Oct-2026 08:15:00 AM", "DESTINATION": "New York", "TRACK": "1", "LINE": "Northeast Corrdr", "TRAIN_ID": "3830", "STATUS": "ON TIME"}
]}`

func TestFetcherSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getTrainSchedule", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("token"))
		assert.Equal(t, "NY", r.PostForm.Get("station"))
		assert.Equal(t, "true", r.PostForm.Get("NJTOnly"))
		w.Write([]byte(nyBoard))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, nil, true, nil)
	board, err := f.Schedule(context.Background(), "tok", "NY")
	require.NoError(t, err)

	assert.Equal(t, "NY", board.StationCode)
	require.Len(t, board.Items, 2)
	assert.Equal(t, "3821", board.Items[0].TrainID)
	assert.Equal(t, "DELAYED", board.Items[1].Status)
	assert.Empty(t, board.Items[1].Track)
}

func TestFetcherScheduleOmitsNJTOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		_, ok := r.PostForm["NJTOnly"]
		assert.False(t, ok)
		w.Write([]byte(`{"ITEMS": []}`))
	}))
	defer srv.Close()

	board, err := NewFetcher(srv.URL, nil, false, nil).Schedule(context.Background(), "tok", "NY")
	require.NoError(t, err)
	assert.Empty(t, board.Items)
}

func TestFetcherScheduleErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "expired token",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			want:    ErrInvalidAuth,
		},
		{
			name:    "unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			want:    ErrCannotConnect,
		},
		{
			name:    "not json",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("oops")) },
			want:    ErrCannotConnect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewFetcher(srv.URL, nil, false, nil).Schedule(context.Background(), "tok", "NY")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFetcherScheduleTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(srv.URL, NewHTTPClient(50*time.Millisecond), false, nil)
	_, err := f.Schedule(context.Background(), "tok", "NY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCannotConnect), "got %v", err)
}

func TestFetcherDirections(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		station := r.PostForm.Get("station")
		mu.Lock()
		seen[station]++
		mu.Unlock()
		switch station {
		case "NY":
			w.Write([]byte(nyBoard))
		case "TR":
			w.Write([]byte(trBoard))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	outbound, inbound, err := NewFetcher(srv.URL, nil, false, nil).Directions(context.Background(), "tok", "NY", "TR")
	require.NoError(t, err)

	assert.Equal(t, "NY", outbound.StationCode)
	assert.Equal(t, "TR", inbound.StationCode)
	assert.Equal(t, map[string]int{"NY": 1, "TR": 1}, seen)
}

func TestFetcherDirectionsFailsWhenOneSideFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("station") == "TR" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(nyBoard))
	}))
	defer srv.Close()

	outbound, inbound, err := NewFetcher(srv.URL, nil, false, nil).Directions(context.Background(), "tok", "NY", "TR")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCannotConnect))
	assert.Empty(t, outbound.Items)
	assert.Empty(t, inbound.Items)
}

func TestFetcherStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getStationList", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("token"))
		w.Write([]byte(`[
			{"STATION_2CHAR": "TR", "STATIONNAME": "Trenton"},
			{"STATION_2CHAR": "", "STATIONNAME": "Nowhere"},
			{"STATION_2CHAR": "NY", "STATIONNAME": "New York Penn Station"}
		]`))
	}))
	defer srv.Close()

	stations, err := NewFetcher(srv.URL, nil, false, nil).Stations(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "NY", stations[0].Code)
	assert.Equal(t, "Trenton", stations[1].Name)
}

func TestAPIErrorMessage(t *testing.T) {
	err := statusError("getTrainSchedule", http.StatusForbidden)
	assert.Equal(t, "getTrainSchedule: HTTP 403: invalid RailData API authentication", err.Error())

	var nilErr *APIError
	assert.Equal(t, "njt api error", nilErr.Error())
}
