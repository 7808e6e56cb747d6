package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
)

var (
	// ErrNoRoute means OSRM answered but found no route between the points.
	ErrNoRoute = errors.New("no route found")

	// ErrPlaceNotFound means a place name could not be geocoded.
	ErrPlaceNotFound = errors.New("place not found")

	errRoutingDecode = errors.New("invalid routing response")
)

// reCoordinate matches an OSRM "lon,lat" pair.
var reCoordinate = regexp.MustCompile(`^-?\d+(\.\d+)?\s*,\s*-?\d+(\.\d+)?$`)

// Route is the summary of the fastest driving route.
type Route struct {
	DurationSeconds float64
	DistanceMeters  float64
}

// ETAText renders the duration as whole minutes ("42 mins").
func (r Route) ETAText() string {
	return fmt.Sprintf("%d mins", int(r.DurationSeconds/60))
}

// DistanceText renders the distance as whole kilometres ("17 km").
func (r Route) DistanceText() string {
	return fmt.Sprintf("%d km", int(r.DistanceMeters/1000))
}

// RoutingClient queries OSRM for driving directions.
type RoutingClient struct {
	cfg     RoutingConfig
	osrm    fetcher
	geocode fetcher
}

// NewRoutingClient creates a routing client.
func NewRoutingClient(cfg RoutingConfig, m *metrics.Metrics) *RoutingClient {
	return &RoutingClient{
		cfg:     cfg,
		osrm:    newFetcher("osrm", cfg.Timeout, m),
		geocode: newFetcher("nominatim", cfg.Timeout, m),
	}
}

// Directions returns the route from origin to destination. Both may be place
// names or "lon,lat" pairs.
func (c *RoutingClient) Directions(ctx context.Context, origin, destination string) (Route, error) {
	from, err := c.resolve(ctx, origin)
	if err != nil {
		return Route{}, err
	}
	to, err := c.resolve(ctx, destination)
	if err != nil {
		return Route{}, err
	}

	endpoint := fmt.Sprintf("%s/route/v1/driving/%s;%s?overview=false&annotations=duration,distance",
		strings.TrimRight(c.cfg.OSRMURL, "/"), from, to)

	var resp struct {
		Code   string `json:"code"`
		Routes []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := c.osrm.getJSON(ctx, endpoint, &resp, errRoutingDecode); err != nil {
		// OSRM reports unroutable input (code "NoRoute", "InvalidQuery") as 400.
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			return Route{}, ErrNoRoute
		}
		return Route{}, err
	}
	if len(resp.Routes) == 0 {
		return Route{}, ErrNoRoute
	}
	return Route{
		DurationSeconds: resp.Routes[0].Duration,
		DistanceMeters:  resp.Routes[0].Distance,
	}, nil
}

// resolve turns a place name into "lon,lat". Coordinates pass through; with
// geocoding disabled the escaped name is sent as is.
func (c *RoutingClient) resolve(ctx context.Context, place string) (string, error) {
	place = strings.TrimSpace(place)
	if reCoordinate.MatchString(place) {
		return strings.ReplaceAll(place, " ", ""), nil
	}
	if c.cfg.GeocodeURL == "" {
		return url.PathEscape(place), nil
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	endpoint := strings.TrimRight(c.cfg.GeocodeURL, "/") + "/search?" + q.Encode()

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := c.geocode.getJSON(ctx, endpoint, &hits, errRoutingDecode); err != nil {
		return "", fmt.Errorf("geocoding %q: %w", place, err)
	}
	if len(hits) == 0 {
		return "", fmt.Errorf("%w: %s", ErrPlaceNotFound, place)
	}
	return hits[0].Lon + "," + hits[0].Lat, nil
}
