package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
)

const userAgent = "Buddy/1.0 (+https://github.com/jholhewres/buddy)"

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 512 * 1024

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.Code, e.Body)
}

// fetcher performs instrumented GET requests for one service.
type fetcher struct {
	service string
	client  *http.Client
	metrics *metrics.Metrics
}

func newFetcher(service string, timeout time.Duration, m *metrics.Metrics) fetcher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return fetcher{
		service: service,
		client:  &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// get fetches rawURL and returns the (size-limited) body of a 2xx response.
func (f fetcher) get(ctx context.Context, rawURL string, header http.Header) (body []byte, err error) {
	start := time.Now()
	defer func() { f.metrics.ObserveUpstream(f.service, time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", f.service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Service: f.service, Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// getJSON fetches rawURL and decodes the JSON body into out. Decode failures
// are wrapped with decodeErr so callers can tell them apart from transport
// errors.
func (f fetcher) getJSON(ctx context.Context, rawURL string, out any, decodeErr error) error {
	body, err := f.get(ctx, rawURL, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", decodeErr, err)
	}
	return nil
}
