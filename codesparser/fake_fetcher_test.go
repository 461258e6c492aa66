package codesparser

import (
	"context"
	"errors"
	"sync"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/interfaces"
)

// fakeFetcher serves canned bodies keyed by URL and records every request.
// URLs without a body fail with a fetch error.
type fakeFetcher struct {
	mu        sync.Mutex
	bodies    map[string]string
	failures  map[string]error
	requested []string
}

var _ interfaces.Fetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{bodies: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeFetcher) serve(url, body string) *fakeFetcher {
	f.bodies[url] = body
	return f
}

func (f *fakeFetcher) fail(url string, err error) *fakeFetcher {
	f.failures[url] = err
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*interfaces.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, url)

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewFetchError(url, err)
	}
	if err, ok := f.failures[url]; ok {
		return nil, apperrors.NewFetchError(url, err)
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, apperrors.NewFetchError(url, errors.New("unexpected status 404 Not Found"))
	}
	return &interfaces.Response{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

func (f *fakeFetcher) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}
