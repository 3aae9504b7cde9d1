package opensky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"celestix/internal/metrics"
	"celestix/internal/models"
)

// ErrUpstreamFetch wraps every failure to obtain state vectors from the upstream API
var ErrUpstreamFetch = errors.New("upstream fetch failed")

// statesResponse is the subset of the upstream body we consume
type statesResponse struct {
	States []json.RawMessage `json:"states"`
}

// Client fetches aircraft state vectors from an OpenSky-compatible endpoint
type Client struct {
	endpoint       string
	httpClient     *http.Client
	includeHeading bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithHeading maps the true track column to AircraftState.Heading
func WithHeading(enabled bool) Option {
	return func(c *Client) {
		c.includeHeading = enabled
	}
}

// NewClient creates a client for the given endpoint URL.
// The endpoint is not validated here; an empty or malformed URL fails on first fetch.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured upstream URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchStates issues one GET to the endpoint and projects every row into an AircraftState.
// No retries are attempted and no partial results are returned on failure.
func (c *Client) FetchStates(ctx context.Context) ([]models.AircraftState, error) {
	start := time.Now()
	states, err := c.fetch(ctx)
	metrics.RecordUpstreamFetch(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	slog.Debug("Fetched aircraft states", "count", len(states), "duration", time.Since(start))
	return states, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.AircraftState, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint URL is not configured", ErrUpstreamFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrUpstreamFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected http status %d", ErrUpstreamFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrUpstreamFetch, err)
	}

	return c.decodeStates(body)
}

// decodeStates parses an upstream body and maps its rows by column index.
// Rows are decoded one at a time so a malformed row cannot fail the whole response.
func (c *Client) decodeStates(body []byte) ([]models.AircraftState, error) {
	var parsed statesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode body: %v", ErrUpstreamFetch, err)
	}

	states := make([]models.AircraftState, 0, len(parsed.States))
	short, malformed := 0, 0
	for _, raw := range parsed.States {
		var row []json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			malformed++
			row = nil
		} else if len(row) < MinRowLen {
			short++
		}
		states = append(states, c.projectRow(row))
	}
	if short > 0 || malformed > 0 {
		slog.Debug("Upstream returned irregular state rows",
			"short_rows", short,
			"malformed_rows", malformed,
			"total_rows", len(parsed.States),
		)
	}
	return states, nil
}

// projectRow maps one positional row onto named fields.
// Short rows and cells of an unexpected type leave the field unset; null cells are flagged.
func (c *Client) projectRow(row []json.RawMessage) models.AircraftState {
	state := models.AircraftState{
		Callsign:      stringAt(row, ColCallsign),
		OriginCountry: stringAt(row, ColOriginCountry),
		Longitude:     floatAt(row, ColLongitude),
		Latitude:      floatAt(row, ColLatitude),
		Altitude:      floatAt(row, ColBaroAltitude),
		Velocity:      floatAt(row, ColVelocity),
	}
	if icao := stringAt(row, ColICAO24); icao != nil {
		state.ICAO24 = *icao
	}
	if c.includeHeading {
		state.Heading = floatAt(row, ColTrueTrack)
	}

	for _, nc := range nullableColumns {
		if nc.flag == models.NullHeading && !c.includeHeading {
			continue
		}
		if isNullAt(row, nc.col) {
			state.Nulls |= nc.flag
		}
	}
	return state
}

var nullableColumns = []struct {
	col  int
	flag models.NullMask
}{
	{ColCallsign, models.NullCallsign},
	{ColOriginCountry, models.NullOriginCountry},
	{ColLongitude, models.NullLongitude},
	{ColLatitude, models.NullLatitude},
	{ColBaroAltitude, models.NullAltitude},
	{ColVelocity, models.NullVelocity},
	{ColTrueTrack, models.NullHeading},
}

func isNullAt(row []json.RawMessage, col int) bool {
	return col < len(row) && string(bytes.TrimSpace(row[col])) == "null"
}

func stringAt(row []json.RawMessage, col int) *string {
	if col >= len(row) {
		return nil
	}
	var v *string
	if err := json.Unmarshal(row[col], &v); err != nil {
		return nil
	}
	return v
}

func floatAt(row []json.RawMessage, col int) *float64 {
	if col >= len(row) {
		return nil
	}
	var v *float64
	if err := json.Unmarshal(row[col], &v); err != nil {
		return nil
	}
	return v
}
