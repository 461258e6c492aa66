// Package fetcher performs the GET requests against the upstream code sources.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/giygas/medcodes-scraper/metrics"
	"golang.org/x/time/rate"
)

// UserAgent is sent with every request, some upstream sites reject
// clients that do not look like a desktop browser
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 2
	DefaultMaxBodySize       = 50 * 1024 * 1024
)

// Compile-time check to ensure HTTPFetcher implements Fetcher interface
var _ interfaces.Fetcher = (*HTTPFetcher)(nil)

// Options configures an HTTPFetcher. Zero values fall back to the defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxBodySize       int64
	Client            *http.Client
}

// HTTPFetcher is a rate limited HTTP client shared by the source scrapers.
// It does not retry and does not cache.
type HTTPFetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxBodySize int64
}

// NewHTTPFetcher creates a fetcher from opts
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPFetcher{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps)))),
		maxBodySize: maxBodySize,
	}
}

// Fetch GETs rawURL and returns the body of a 2xx response.
// Every failure is an apperrors fetch error carrying the URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*interfaces.Response, error) {
	host := hostOf(rawURL)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewFetchError(rawURL, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewFetchError(rawURL, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,text/csv,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(host, "error").Inc()
		logging.Error("Error fetching upstream", "url", rawURL, "error", err)
		return nil, apperrors.NewFetchError(rawURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "url", rawURL, "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(host, "bad_status").Inc()
		// Drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		logging.Error("Unexpected upstream status", "url", rawURL, "status", resp.StatusCode)
		return nil, apperrors.NewFetchError(rawURL, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(host, "error").Inc()
		return nil, apperrors.NewFetchError(rawURL, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > f.maxBodySize {
		metrics.UpstreamRequestsTotal.WithLabelValues(host, "too_large").Inc()
		return nil, apperrors.NewFetchError(rawURL, fmt.Errorf("response body exceeds %d bytes", f.maxBodySize))
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(host, "ok").Inc()
	logging.Debug("Fetched upstream resource", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))

	return &interfaces.Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
