package serpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/orm"
)

func testQuery(t *testing.T, raw flights.RawQuery) *flights.FlightQuery {
	t.Helper()
	v := flights.NewValidator(nil, func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) })
	q, err := v.Validate(raw)
	require.NoError(t, err)
	return q
}

func TestParams(t *testing.T) {
	q := testQuery(t, flights.RawQuery{DepartureID: "LHR", ArrivalID: "JFK", DepartureDate: "2026-10-23"})
	p := Params(q)
	assert.Equal(t, "google_flights", p.Get("engine"))
	assert.Equal(t, "2026-10-23", p.Get("outbound_date"))
	assert.Equal(t, "2", p.Get("type"))
	assert.Equal(t, "json", p.Get("output"))
	assert.False(t, p.Has("return_date"))
	assert.False(t, p.Has("gl"))
	assert.False(t, p.Has("api_key"))

	q = testQuery(t, flights.RawQuery{DepartureID: "LHR", ArrivalID: "JFK", DepartureDate: "2026-10-23", ReturnDate: "2026-10-30", Country: "us", Language: "en", Currency: "usd"})
	p = Params(q)
	assert.Equal(t, "2026-10-30", p.Get("return_date"))
	assert.Equal(t, "1", p.Get("type"))
	assert.Equal(t, "us", p.Get("gl"))
	assert.Equal(t, "en", p.Get("hl"))
	assert.Equal(t, "USD", p.Get("currency"))
}

func TestSearch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "LHR", r.URL.Query().Get("departure_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"best_flights":[{"price":540,"total_duration":475}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "secret", BaseURL: srv.URL}, nil, nil, nil)
	out, err := c.Search(context.Background(), testQuery(t, flights.RawQuery{DepartureID: "london", ArrivalID: "nyc", DepartureDate: "2026-10-23"}))
	require.NoError(t, err)
	assert.Len(t, flights.ParseResults(out), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSearchProviderError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		payload any
	}{
		{"JSONPayload", `{"error":"Invalid API key"}`, map[string]any{"error": "Invalid API key"}},
		{"TextPayload", `upstream exploded`, "upstream exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Options{APIKey: "bad", BaseURL: srv.URL}, nil, nil, nil)
			_, err := c.Search(context.Background(), testQuery(t, flights.RawQuery{DepartureID: "LHR", ArrivalID: "JFK", DepartureDate: "2026-10-23"}))

			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
			assert.Equal(t, tt.payload, perr.Payload)
		})
	}
}

func TestSearchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{APIKey: "k", BaseURL: url}, nil, nil, nil)
	_, err := c.Search(context.Background(), testQuery(t, flights.RawQuery{DepartureID: "LHR", ArrivalID: "JFK", DepartureDate: "2026-10-23"}))
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Zero(t, perr.StatusCode)
	assert.Error(t, perr.Err)
}

func TestSearchMissingKey(t *testing.T) {
	c := NewClient(Options{}, nil, nil, nil)
	_, err := c.Search(context.Background(), testQuery(t, flights.RawQuery{DepartureID: "LHR", ArrivalID: "JFK", DepartureDate: "2026-10-23"}))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearchUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"other_flights":[{"price":300,"total_duration":420}]}`))
	}))
	defer srv.Close()

	db, err := orm.Open("sqlite", "file:serpapi_cache?mode=memory&cache=shared")
	require.NoError(t, err)
	cache, err := orm.NewCache(db, time.Minute)
	require.NoError(t, err)

	c := NewClient(Options{APIKey: "k", BaseURL: srv.URL, Cache: cache}, nil, nil, nil)
	q := testQuery(t, flights.RawQuery{DepartureID: "CDG", ArrivalID: "JFK", DepartureDate: "2026-11-02"})

	first, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
