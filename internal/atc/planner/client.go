// Package planner implements the taxi-route planner HTTP client (spec
// §6): GET /atc/route?icao=...&fromLat=...&fromLon=...&toRunway=...
//
// Grounded on the teacher's internal/integration/asgard.go "named
// external service client with its own base URL and http.Client"
// idiom. Response decoding uses tidwall/gjson rather than a strict
// struct tag contract because the wire payload's waypoint `type`
// field is a free-form string in spec §6, not a fixed enum.
package planner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/flightcore/copilot/internal/flightdata"
)

// Client requests taxi routes from the external planner.
type Client struct {
	baseURL string
	http    *http.Client

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// NewClient builds a planner client targeting baseURL (e.g.
// "http://localhost:8085").
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// RequestRoute implements atc.Planner. A new request supersedes and
// cancels any still-pending one (spec §5's "abort handle supersedes
// the previous pending call").
func (c *Client) RequestRoute(icao, runway string, fromLat, fromLon float64) (*flightdata.Route, error) {
	c.mu.Lock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelPrev = cancel
	c.mu.Unlock()

	q := url.Values{}
	q.Set("icao", icao)
	q.Set("fromLat", strconv.FormatFloat(fromLat, 'f', -1, 64))
	q.Set("fromLon", strconv.FormatFloat(fromLon, 'f', -1, 64))
	q.Set("toRunway", runway)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/atc/route?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build taxi planner request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("taxi planner request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read taxi planner response: %w", err)
	}

	return parseRouteResponse(body)
}

func parseRouteResponse(body []byte) (*flightdata.Route, error) {
	result := gjson.ParseBytes(body)
	if !result.Get("success").Bool() {
		return nil, fmt.Errorf("taxi planner reported failure")
	}

	route := &flightdata.Route{
		Instruction: result.Get("instruction").String(),
		DistanceFt:  result.Get("distance_ft").Float(),
	}

	for _, tw := range result.Get("taxiways").Array() {
		route.Taxiways = append(route.Taxiways, tw.String())
	}

	for _, wp := range result.Get("waypoints").Array() {
		route.Waypoints = append(route.Waypoints, flightdata.Waypoint{
			Lat:  wp.Get("lat").Float(),
			Lon:  wp.Get("lon").Float(),
			Name: wp.Get("name").String(),
			Type: flightdata.WaypointType(wp.Get("type").String()),
		})
	}

	if len(route.Waypoints) == 0 {
		return nil, fmt.Errorf("taxi planner returned an empty route")
	}

	return route, nil
}
