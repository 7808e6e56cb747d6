// Package services wraps the external HTTP APIs the assistant depends on:
// OSRM routing (with Nominatim geocoding), weatherapi.com current conditions,
// an OpenAI-compatible chat model, and the Wikipedia/DuckDuckGo knowledge
// fallback.
package services

import "time"

// RoutingConfig configures the OSRM and Nominatim endpoints.
type RoutingConfig struct {
	// OSRMURL is the OSRM base URL (no trailing slash).
	OSRMURL string `yaml:"osrm_url"`

	// GeocodeURL is the Nominatim base URL used to turn place names into
	// coordinates. Empty disables geocoding.
	GeocodeURL string `yaml:"geocode_url"`

	// Timeout per request.
	Timeout time.Duration `yaml:"timeout"`
}

// WeatherConfig configures the weatherapi.com client.
type WeatherConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`

	// DefaultCity is used when the message does not name a city.
	DefaultCity string `yaml:"default_city"`
}

// AIConfig configures the chat-completion client. An empty APIKey disables
// the AI branch entirely.
type AIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// KnowledgeConfig configures the encyclopedia and web-search fallback.
type KnowledgeConfig struct {
	Enabled      bool          `yaml:"enabled"`
	WikipediaURL string        `yaml:"wikipedia_url"`
	SearchURL    string        `yaml:"search_url"`
	MaxResults   int           `yaml:"max_results"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CacheConfig sizes the lookup cache shared by weather and knowledge.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Config groups every external-service setting.
type Config struct {
	Routing   RoutingConfig   `yaml:"routing"`
	Weather   WeatherConfig   `yaml:"weather"`
	AI        AIConfig        `yaml:"ai"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Cache     CacheConfig     `yaml:"cache"`
}

// DefaultConfig returns the public endpoints with 8s timeouts.
func DefaultConfig() Config {
	return Config{
		Routing: RoutingConfig{
			OSRMURL:    "http://router.project-osrm.org",
			GeocodeURL: "https://nominatim.openstreetmap.org",
			Timeout:    8 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.weatherapi.com",
			Timeout:     8 * time.Second,
			DefaultCity: "Hyderabad",
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   200,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			Enabled:      true,
			WikipediaURL: "https://en.wikipedia.org",
			SearchURL:    "https://html.duckduckgo.com",
			MaxResults:   2,
			Timeout:      8 * time.Second,
		},
		Cache: CacheConfig{
			Size: 256,
			TTL:  10 * time.Minute,
		},
	}
}
