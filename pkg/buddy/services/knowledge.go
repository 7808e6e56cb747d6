package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jholhewres/buddy/pkg/buddy/metrics"
)

var errKnowledgeDecode = errors.New("invalid knowledge response")

// SearchResult is one web search hit.
type SearchResult struct {
	Title string
	URL   string
	Body  string
}

// Wikipedia finds articles with the MediaWiki search API and reads their
// summaries from the Wikipedia REST API.
type Wikipedia struct {
	baseURL string
	http    fetcher
	cache   *LookupCache
}

// NewWikipedia creates a summary client. cache may be nil.
func NewWikipedia(cfg KnowledgeConfig, cache *LookupCache, m *metrics.Metrics) *Wikipedia {
	return &Wikipedia{
		baseURL: strings.TrimRight(cfg.WikipediaURL, "/"),
		http:    newFetcher("wikipedia", cfg.Timeout, m),
		cache:   cache,
	}
}

// Summary returns the first sentence of the page best matching query. The
// query goes through the MediaWiki search first, so questions such as
// "who is albert einstein" land on the right article. Disambiguation pages
// and empty extracts yield ErrNotFound.
func (w *Wikipedia) Summary(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNotFound
	}
	if cached, ok := w.cache.Get("wikipedia", query); ok {
		w.http.metrics.ObserveCacheHit("wikipedia")
		return cached, nil
	}

	title, err := w.resolveTitle(ctx, query)
	if err != nil {
		return "", err
	}

	endpoint := w.baseURL + "/api/rest_v1/page/summary/" +
		url.PathEscape(strings.ReplaceAll(title, " ", "_")) + "?redirect=true"

	var resp struct {
		Type    string `json:"type"`
		Extract string `json:"extract"`
	}
	if err := w.http.getJSON(ctx, endpoint, &resp, errKnowledgeDecode); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return "", fmt.Errorf("wikipedia %q: %w", title, ErrNotFound)
		}
		return "", err
	}
	if resp.Type == "disambiguation" {
		return "", fmt.Errorf("wikipedia %q is ambiguous: %w", title, ErrNotFound)
	}

	summary := firstSentence(resp.Extract)
	if summary == "" {
		return "", fmt.Errorf("wikipedia %q: %w", title, ErrNotFound)
	}
	w.cache.Add("wikipedia", query, summary)
	return summary, nil
}

// resolveTitle returns the title of the top search hit for query. With no
// hit, the search's spelling suggestion is tried once.
func (w *Wikipedia) resolveTitle(ctx context.Context, query string) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		params := url.Values{
			"action":   {"query"},
			"list":     {"search"},
			"srsearch": {query},
			"srlimit":  {"1"},
			"srinfo":   {"suggestion"},
			"srprop":   {""},
			"format":   {"json"},
		}
		var resp struct {
			Query struct {
				SearchInfo struct {
					Suggestion string `json:"suggestion"`
				} `json:"searchinfo"`
				Search []struct {
					Title string `json:"title"`
				} `json:"search"`
			} `json:"query"`
		}
		if err := w.http.getJSON(ctx, w.baseURL+"/w/api.php?"+params.Encode(), &resp, errKnowledgeDecode); err != nil {
			return "", err
		}
		if hits := resp.Query.Search; len(hits) > 0 && hits[0].Title != "" {
			return hits[0].Title, nil
		}
		suggestion := strings.TrimSpace(resp.Query.SearchInfo.Suggestion)
		if suggestion == "" || suggestion == query {
			break
		}
		query = suggestion
	}
	return "", fmt.Errorf("wikipedia search %q: %w", query, ErrNotFound)
}

// firstSentence cuts text after the first sentence terminator that is
// followed by whitespace.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if next := text[i+1]; next == ' ' || next == '\n' || next == '\t' {
				return text[:i+1]
			}
		}
	}
	return text
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	baseURL string
	http    fetcher
	cache   *LookupCache
}

// NewDuckDuckGo creates a web search client. cache may be nil.
func NewDuckDuckGo(cfg KnowledgeConfig, cache *LookupCache, m *metrics.Metrics) *DuckDuckGo {
	return &DuckDuckGo{
		baseURL: strings.TrimRight(cfg.SearchURL, "/"),
		http:    newFetcher("duckduckgo", cfg.Timeout, m),
		cache:   cache,
	}
}

// Search returns up to limit results that carry a snippet.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 2
	}
	endpoint := d.baseURL + "/html/?q=" + url.QueryEscape(query)

	body, err := d.http.get(ctx, endpoint, http.Header{"Accept": {"text/html"}})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errKnowledgeDecode, err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		if snippet == "" {
			return true
		}
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		results = append(results, SearchResult{
			Title: strings.TrimSpace(link.Text()),
			URL:   unwrapRedirect(href),
			Body:  snippet,
		})
		return len(results) < limit
	})
	return results, nil
}

// Snippets returns the result bodies joined by a blank line, cached per query.
func (d *DuckDuckGo) Snippets(ctx context.Context, query string, limit int) (string, error) {
	key := fmt.Sprintf("%d:%s", limit, query)
	if cached, ok := d.cache.Get("duckduckgo", key); ok {
		d.http.metrics.ObserveCacheHit("duckduckgo")
		return cached, nil
	}
	results, err := d.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("search %q: %w", query, ErrNotFound)
	}
	bodies := make([]string, 0, len(results))
	for _, r := range results {
		bodies = append(bodies, r.Body)
	}
	out := strings.Join(bodies, "\n\n")
	d.cache.Add("duckduckgo", key, out)
	return out, nil
}

// unwrapRedirect extracts the target from DuckDuckGo's "/l/?uddg=" links.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
