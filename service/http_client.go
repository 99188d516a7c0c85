package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dohoonk/roomdetect/floorplan"
)

const (
	// DefaultFetchTimeout bounds a single request for a wall payload.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchAttempts is how often a transient failure is tried.
	DefaultFetchAttempts = 3

	defaultFetchBackoff = 500 * time.Millisecond

	// maxPayloadBytes limits a wall payload to 50 MB.
	maxPayloadBytes = 50 << 20
)

// ErrNotModified is returned by Fetcher.Fetch when the source answered 304
// to the ETag of the previous successful fetch.
var ErrNotModified = errors.New("walls not modified")

// StatusError is a non-200 answer from a wall source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Transient reports whether the request may succeed when repeated:
// server errors, request timeouts and rate limiting.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) FetchOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithAttempts sets how often a transient failure is tried in total.
func WithAttempts(n int) FetchOption {
	return func(f *Fetcher) { f.attempts = n }
}

// WithBackoff sets the delay before the second attempt; it doubles after
// every further failure.
func WithBackoff(d time.Duration) FetchOption {
	return func(f *Fetcher) { f.backoff = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) { f.client = client }
}

// Fetcher downloads and validates wall payloads. It remembers the ETag of
// every URL it fetched so repeated polls of an unchanged plan cost a 304.
type Fetcher struct {
	tolerance float64
	client    *http.Client
	timeout   time.Duration
	attempts  int
	backoff   time.Duration

	mu    sync.Mutex
	etags map[string]string
}

// NewFetcher creates a fetcher validating payloads with tolerance.
func NewFetcher(tolerance float64, opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		tolerance: tolerance,
		timeout:   DefaultFetchTimeout,
		attempts:  DefaultFetchAttempts,
		backoff:   defaultFetchBackoff,
		etags:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.attempts < 1 {
		f.attempts = 1
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// FetchSegments is a one-shot Fetch without ETag memory.
func FetchSegments(ctx context.Context, url string, tolerance float64, opts ...FetchOption) ([]floorplan.WallSegment, error) {
	return NewFetcher(tolerance, opts...).Fetch(ctx, url)
}

// Fetch downloads the payload at url and validates it. Network errors and
// transient statuses are retried; other statuses, oversized bodies and
// invalid payloads fail at once.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]floorplan.WallSegment, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch walls: URL is empty")
	}

	var body []byte
	var err error
	delay := f.backoff
	for attempt := 1; ; attempt++ {
		body, err = f.get(ctx, url)
		if err == nil || !retryable(err) || attempt == f.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch walls: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	switch {
	case errors.Is(err, ErrNotModified):
		return nil, err
	case err != nil && retryable(err):
		return nil, fmt.Errorf("fetch walls: all %d attempts failed: %w", f.attempts, err)
	case err != nil:
		return nil, fmt.Errorf("fetch walls: %w", err)
	}

	segments, err := floorplan.ParseSegmentsJSON(body, f.tolerance)
	if err != nil {
		f.forget(url)
		return nil, fmt.Errorf("fetch walls from %s: %w", url, err)
	}
	return segments, nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return !errors.Is(err, ErrNotModified) && !errors.Is(err, errPayloadTooLarge)
}

var errPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", maxPayloadBytes)

// get performs one conditional GET.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag := f.etag(url); etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return nil, ErrNotModified
	default:
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading walls from %s: %w", url, err)
	}
	if len(body) > maxPayloadBytes {
		return nil, errPayloadTooLarge
	}
	f.remember(url, resp.Header.Get("ETag"))
	return body, nil
}

func (f *Fetcher) etag(url string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.etags[url]
}

func (f *Fetcher) remember(url, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if etag == "" {
		delete(f.etags, url)
		return
	}
	f.etags[url] = etag
}

// forget drops the ETag of a payload that failed validation so the next
// poll downloads it again.
func (f *Fetcher) forget(url string) {
	f.remember(url, "")
}
