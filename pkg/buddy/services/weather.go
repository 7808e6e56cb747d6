package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
)

var (
	// ErrNotFound means the upstream answered without usable data.
	ErrNotFound = errors.New("not found")

	// ErrDecode means the upstream body was not valid JSON.
	ErrDecode = errors.New("invalid response body")
)

// Conditions is the current weather for a city.
type Conditions struct {
	City      string  `json:"city"`
	Condition string  `json:"condition"`
	TempC     float64 `json:"temp_c"`
}

// WeatherClient reads current conditions from weatherapi.com.
type WeatherClient struct {
	cfg   WeatherConfig
	http  fetcher
	cache *LookupCache
}

// NewWeatherClient creates a weather client. cache may be nil.
func NewWeatherClient(cfg WeatherConfig, cache *LookupCache, m *metrics.Metrics) *WeatherClient {
	return &WeatherClient{
		cfg:   cfg,
		http:  newFetcher("weather", cfg.Timeout, m),
		cache: cache,
	}
}

// DefaultCity returns the configured fallback city.
func (c *WeatherClient) DefaultCity() string {
	if c.cfg.DefaultCity == "" {
		return "Hyderabad"
	}
	return c.cfg.DefaultCity
}

// Current returns the conditions for city. ErrNotFound when the response
// carries no "current" block, ErrDecode when it is not JSON; anything else is
// a transport or HTTP status error.
func (c *WeatherClient) Current(ctx context.Context, city string) (Conditions, error) {
	if cached, ok := c.cache.Get("weather", city); ok {
		var cond Conditions
		if json.Unmarshal([]byte(cached), &cond) == nil {
			c.http.metrics.ObserveCacheHit("weather")
			return cond, nil
		}
	}

	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("q", city)
	q.Set("aqi", "no")
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/current.json?" + q.Encode()

	var resp struct {
		Current *struct {
			TempC     float64 `json:"temp_c"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := c.http.getJSON(ctx, endpoint, &resp, ErrDecode); err != nil {
		return Conditions{}, err
	}
	if resp.Current == nil {
		return Conditions{}, fmt.Errorf("weather for %q: %w", city, ErrNotFound)
	}

	cond := Conditions{
		City:      city,
		Condition: resp.Current.Condition.Text,
		TempC:     resp.Current.TempC,
	}
	if b, err := json.Marshal(cond); err == nil {
		c.cache.Add("weather", city, string(b))
	}
	return cond, nil
}
