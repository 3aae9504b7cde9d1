package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"celestix/internal/database"
	"celestix/internal/models"
	"celestix/internal/opensky"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a simple mock implementation of StateFetcher
type mockFetcher struct {
	states []models.AircraftState
	err    error
	calls  int
}

func (m *mockFetcher) FetchStates(ctx context.Context) ([]models.AircraftState, error) {
	m.calls++
	return m.states, m.err
}

// mockLookup is a simple mock implementation of AircraftLookup
type mockLookup struct {
	aircraft map[string]*models.Aircraft
	err      error
}

func (m *mockLookup) Get(ctx context.Context, icao24 string) (*models.Aircraft, error) {
	if m.err != nil {
		return nil, m.err
	}
	ac, ok := m.aircraft[icao24]
	if !ok {
		return nil, database.ErrNotFound
	}
	return ac, nil
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlanesPage(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *mockFetcher
	}{
		{name: "healthy upstream", fetcher: &mockFetcher{}},
		{name: "failing upstream", fetcher: &mockFetcher{err: errors.New("down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.fetcher, nil).Handler()

			rec := doGet(t, h, "/planes")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			body := rec.Body.String()
			assert.Contains(t, body, "<!DOCTYPE html>")
			assert.Contains(t, body, "POLL_INTERVAL_MS = 5000")
			assert.Contains(t, body, "/api/planes")
			assert.Contains(t, body, "leaflet")
			assert.Zero(t, tt.fetcher.calls, "page must not touch the upstream")
		})
	}
}

func TestPlanesPage_Static(t *testing.T) {
	h := New(&mockFetcher{}, nil).Handler()

	first := doGet(t, h, "/planes").Body.String()
	second := doGet(t, h, "/planes").Body.String()
	assert.Equal(t, first, second)
}

func TestAPIPlanes(t *testing.T) {
	fetcher := &mockFetcher{
		states: []models.AircraftState{
			{
				ICAO24:        "abc123",
				Callsign:      strPtr("UAL123 "),
				OriginCountry: strPtr("United States"),
				Latitude:      floatPtr(37.7),
				Longitude:     floatPtr(-122.4),
				Altitude:      floatPtr(1000),
				Velocity:      floatPtr(250),
			},
			{
				// no position: still returned, the map skips it
				ICAO24:        "def456",
				OriginCountry: strPtr("Germany"),
			},
		},
	}
	h := New(fetcher, nil).Handler()

	rec := doGet(t, h, "/api/planes")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"planes":[
		{"icao24":"abc123","callsign":"UAL123 ","originCountry":"United States","latitude":37.7,"longitude":-122.4,"altitude":1000,"velocity":250},
		{"icao24":"def456","originCountry":"Germany"}
	]}`, rec.Body.String())
}

func TestAPIPlanes_Empty(t *testing.T) {
	h := New(&mockFetcher{states: nil}, nil).Handler()

	rec := doGet(t, h, "/api/planes")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"planes":[]}`, rec.Body.String())
}

func TestAPIPlanes_UpstreamFailure(t *testing.T) {
	h := New(&mockFetcher{err: errors.New("connection refused")}, nil).Handler()

	rec := doGet(t, h, "/api/planes")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"error":"Failed to fetch flight data"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAPIPlanes_ThroughUpstreamClient(t *testing.T) {
	const upstreamBody = `{"states":[["abc123","UAL123 ","United States",0,0,-122.4,37.7,1000,0,250,90,0,0,0,0,0,0]]}`
	const want = `{"planes":[{"icao24":"abc123","callsign":"UAL123 ","originCountry":"United States","latitude":37.7,"longitude":-122.4,"altitude":1000,"velocity":250}]}`

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, upstreamBody)
	}))
	defer upstream.Close()

	h := New(opensky.NewClient(upstream.URL), nil).Handler()

	first := doGet(t, h, "/api/planes")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, want, first.Body.String())

	// unchanged upstream yields byte-identical output
	second := doGet(t, h, "/api/planes")
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestAPIPlanes_IrregularUpstreamRows(t *testing.T) {
	const upstreamBody = `{"states":[["abc123",null,"United States",0,0,null,null,1000,0,250],7]}`
	const want = `{"planes":[{"icao24":"abc123","callsign":null,"originCountry":"United States","latitude":null,"longitude":null,"altitude":1000,"velocity":250},{"icao24":""}]}`

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, upstreamBody)
	}))
	defer upstream.Close()

	h := New(opensky.NewClient(upstream.URL), nil).Handler()

	rec := doGet(t, h, "/api/planes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, rec.Body.String())
}

func TestAPIPlanes_UpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	h := New(opensky.NewClient(url), nil).Handler()

	rec := doGet(t, h, "/api/planes")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch flight data"}`, rec.Body.String())
}

func TestAPIPlanes_UpstreamNotConfigured(t *testing.T) {
	h := New(opensky.NewClient(""), nil).Handler()

	rec := doGet(t, h, "/api/planes")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch flight data"}`, rec.Body.String())

	// the page still loads
	assert.Equal(t, http.StatusOK, doGet(t, h, "/planes").Code)
}

func TestAircraftLookup(t *testing.T) {
	lookup := &mockLookup{
		aircraft: map[string]*models.Aircraft{
			"abc123": {ICAO24: "abc123", Registration: "N12345", Model: "737-824"},
		},
	}
	h := New(&mockFetcher{}, lookup).Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{
			name:     "found",
			path:     "/api/aircraft/abc123",
			wantCode: http.StatusOK,
			wantBody: `{"icao24":"abc123","registration":"N12345","model":"737-824"}`,
		},
		{
			name:     "not found",
			path:     "/api/aircraft/ffffff",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Aircraft not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, h, tt.path)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAircraftLookup_Error(t *testing.T) {
	h := New(&mockFetcher{}, &mockLookup{err: errors.New("disk I/O error")}).Handler()

	rec := doGet(t, h, "/api/aircraft/abc123")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to look up aircraft"}`, rec.Body.String())
}

func TestAircraftLookup_DisabledRegistry(t *testing.T) {
	h := New(&mockFetcher{}, nil).Handler()

	rec := doGet(t, h, "/api/aircraft/abc123")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h := New(&mockFetcher{}, nil).Handler()

	rec := doGet(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&mockFetcher{}, nil).Handler()

	doGet(t, h, "/api/planes")
	rec := doGet(t, h, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "celestix_http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(&mockFetcher{}, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/planes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverer(t *testing.T) {
	h := New(&panicFetcher{}, nil).Handler()

	rec := doGet(t, h, "/api/planes")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicFetcher struct{}

func (panicFetcher) FetchStates(ctx context.Context) ([]models.AircraftState, error) {
	panic("unexpected")
}
