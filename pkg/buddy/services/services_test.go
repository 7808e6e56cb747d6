package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingClient_Directions(t *testing.T) {
	t.Parallel()

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/78.44,17.43;78.38,17.45", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("overview"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"duration":1530.4,"distance":17890.2}]}`))
	}))
	defer osrm.Close()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "ameerpet":
			_, _ = w.Write([]byte(`[{"lat":"17.43","lon":"78.44"}]`))
		case "hitech city":
			_, _ = w.Write([]byte(`[{"lat":"17.45","lon":"78.38"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer geo.Close()

	c := NewRoutingClient(RoutingConfig{OSRMURL: osrm.URL, GeocodeURL: geo.URL, Timeout: time.Second}, nil)

	route, err := c.Directions(context.Background(), "ameerpet", "hitech city")
	require.NoError(t, err)
	assert.Equal(t, "25 mins", route.ETAText())
	assert.Equal(t, "17 km", route.DistanceText())

	_, err = c.Directions(context.Background(), "atlantis", "hitech city")
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestRoutingClient_CoordinatesSkipGeocoding(t *testing.T) {
	t.Parallel()

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/78.1,17.2;78.3,17.4", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[]}`))
	}))
	defer osrm.Close()

	c := NewRoutingClient(RoutingConfig{OSRMURL: osrm.URL, GeocodeURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Directions(context.Background(), "78.1, 17.2", "78.3,17.4")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRoutingClient_BadRequestIsNoRoute(t *testing.T) {
	t.Parallel()

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"InvalidQuery"}`))
	}))
	defer osrm.Close()

	c := NewRoutingClient(RoutingConfig{OSRMURL: osrm.URL}, nil)
	_, err := c.Directions(context.Background(), "1,2", "3,4")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestWeatherClient_Current(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "no", r.URL.Query().Get("aqi"))
		switch r.URL.Query().Get("q") {
		case "Hyderabad":
			_, _ = w.Write([]byte(`{"location":{},"current":{"temp_c":31.0,"condition":{"text":"Sunny"}}}`))
		case "Nowhere":
			_, _ = w.Write([]byte(`{"location":{}}`))
		case "Garbage":
			_, _ = w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	cache := NewLookupCache(CacheConfig{Size: 8, TTL: time.Minute})
	c := NewWeatherClient(WeatherConfig{BaseURL: srv.URL, APIKey: "k"}, cache, nil)
	ctx := context.Background()

	cond, err := c.Current(ctx, "Hyderabad")
	require.NoError(t, err)
	assert.Equal(t, Conditions{City: "Hyderabad", Condition: "Sunny", TempC: 31}, cond)

	_, err = c.Current(ctx, "Hyderabad")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should be cached")

	_, err = c.Current(ctx, "Nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Current(ctx, "Garbage")
	assert.ErrorIs(t, err, ErrDecode)

	_, err = c.Current(ctx, "Teapot")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)

	assert.Equal(t, "Hyderabad", c.DefaultCity())
}

func TestWikipedia_Summary(t *testing.T) {
	t.Parallel()

	titles := map[string]string{
		"who is albert einstein":    "Albert Einstein",
		"Go (programming language)": "Go (programming language)",
		"Mercury":                   "Mercury",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/w/api.php":
			q := r.URL.Query()
			assert.Equal(t, "search", q.Get("list"))
			assert.Equal(t, "1", q.Get("srlimit"))

			search := []map[string]string{}
			if title, ok := titles[q.Get("srsearch")]; ok {
				search = append(search, map[string]string{"title": title})
			}
			info := map[string]string{}
			if q.Get("srsearch") == "albrt einstien" {
				info["suggestion"] = "who is albert einstein"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"searchinfo": info, "search": search},
			})
		case "/api/rest_v1/page/summary/Albert_Einstein":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"type":    "standard",
				"extract": "Albert Einstein was a German-born theoretical physicist. He developed relativity.",
			})
		case "/api/rest_v1/page/summary/Go_(programming_language)":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"type":    "standard",
				"extract": "Go is a programming language designed at Google. It is statically typed.",
			})
		case "/api/rest_v1/page/summary/Mercury":
			_ = json.NewEncoder(w).Encode(map[string]string{"type": "disambiguation", "extract": "Mercury may refer to:"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	wp := NewWikipedia(KnowledgeConfig{WikipediaURL: srv.URL}, nil, nil)
	ctx := context.Background()

	got, err := wp.Summary(ctx, "who is albert einstein")
	require.NoError(t, err)
	assert.Equal(t, "Albert Einstein was a German-born theoretical physicist.", got)

	got, err = wp.Summary(ctx, "albrt einstien")
	require.NoError(t, err)
	assert.Equal(t, "Albert Einstein was a German-born theoretical physicist.", got)

	got, err = wp.Summary(ctx, "Go (programming language)")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language designed at Google.", got)

	_, err = wp.Summary(ctx, "Mercury")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = wp.Summary(ctx, "qwertyuiop")
	assert.ErrorIs(t, err, ErrNotFound)
}

const ddgPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=x">The Go <b>Programming</b> Language</a>
  <a class="result__snippet" href="#">Go is an open source programming language.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.com/empty">No snippet</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.com/tour">Tour</a>
  <a class="result__snippet" href="#">A Tour of Go.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.com/third">Third</a>
  <a class="result__snippet" href="#">Should be cut.</a>
</div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	ddg := NewDuckDuckGo(KnowledgeConfig{SearchURL: srv.URL}, nil, nil)

	results, err := ddg.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://go.dev/", results[0].URL)
	assert.Equal(t, "The Go Programming Language", results[0].Title)
	assert.Equal(t, "A Tour of Go.", results[1].Body)

	joined, err := ddg.Snippets(context.Background(), "golang", 2)
	require.NoError(t, err)
	assert.Equal(t, "Go is an open source programming language.\n\nA Tour of Go.", joined)
}

func TestFirstSentence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"One. Two.", "One."},
		{"No terminator", "No terminator"},
		{"Version 1.2 is out! Yes.", "Version 1.2 is out!"},
		{"  trailing.  ", "trailing."},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstSentence(tt.in), tt.in)
	}
}

func TestNewAIClient_DisabledWithoutKey(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewAIClient(AIConfig{}, nil))
	assert.NotNil(t, NewAIClient(AIConfig{APIKey: "sk-test"}, nil))
}

func TestAIClient_Answer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Messages, 1) {
			assert.Equal(t, 200, req.MaxTokens)
			assert.Equal(t, "Answer or translate in simple language:\nsolve 2+2", req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  4  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewAIClient(AIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "test-model", MaxTokens: 200, Temperature: 0.7}, nil)
	got, err := c.Answer(context.Background(), "solve 2+2")
	require.NoError(t, err)
	assert.Equal(t, "4", got)
}

func TestLookupCache_NilAndDisabled(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewLookupCache(CacheConfig{}))

	var c *LookupCache
	c.Add("x", "k", "v")
	_, ok := c.Get("x", "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	c = NewLookupCache(CacheConfig{Size: 2, TTL: time.Minute})
	c.Add("weather", " Hyderabad ", "v")
	got, ok := c.Get("weather", "hyderabad")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}
