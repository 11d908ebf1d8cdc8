package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"sjsage522/wikicatalog/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// mockResponse is what MockFetcher serves for one URL
type mockResponse struct {
	status   int
	body     string
	finalURL string
	err      error
}

// MockFetcher serves canned pages and records every request
type MockFetcher struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	requests  []string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{responses: make(map[string]mockResponse)}
}

func (m *MockFetcher) Page(url string, status int, body string) *MockFetcher {
	m.responses[url] = mockResponse{status: status, body: body}
	return m
}

func (m *MockFetcher) Redirect(url, finalURL, body string) *MockFetcher {
	m.responses[url] = mockResponse{status: http.StatusOK, body: body, finalURL: finalURL}
	return m
}

func (m *MockFetcher) Fail(url string, err error) *MockFetcher {
	m.responses[url] = mockResponse{err: err}
	return m
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*RawPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, url)
	resp, ok := m.responses[url]
	m.mu.Unlock()

	if !ok {
		resp = mockResponse{status: http.StatusNotFound, body: "<html><title>Not found</title></html>"}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	final := resp.finalURL
	if final == "" {
		final = url
	}
	return &RawPage{URL: url, FinalURL: final, StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func (m *MockFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *MockFetcher) Count(url string) int {
	n := 0
	for _, r := range m.Requests() {
		if r == url {
			n++
		}
	}
	return n
}

var errConnRefused = errors.New("connection refused")

func vehicleSelectors() Selectors {
	return Selectors{
		Link:           "a[href]",
		CatalogSegment: "/vehicles/",
		ExcludeMarkers: []string{"/page/", "/category/"},
		Heading:        "h1.entry-title",
		MetaTitle:      `meta[property="og:title"]`,
		SpecRow:        "tr",
		SpecCell:       "td, th",
		Content:        "div.entry-content",
		Paragraph:      "p, li",
		SpeedKeyword:   []string{"Cкорость", "Скорость"},
	}
}

func discountSelectors() Selectors {
	return Selectors{Row: "table tr", Cell: "td", MinCells: 5}
}

// visit is one timed request made through a SlowFetcher
type visit struct {
	url        string
	start, end time.Time
}

// SlowFetcher delays every MockFetcher response and records when each
// request started and finished
type SlowFetcher struct {
	*MockFetcher
	latency time.Duration

	mu     sync.Mutex
	visits []visit
}

func NewSlowFetcher(inner *MockFetcher, latency time.Duration) *SlowFetcher {
	return &SlowFetcher{MockFetcher: inner, latency: latency}
}

func (s *SlowFetcher) Fetch(ctx context.Context, url string) (*RawPage, error) {
	start := time.Now()
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	page, err := s.MockFetcher.Fetch(ctx, url)

	s.mu.Lock()
	s.visits = append(s.visits, visit{url: url, start: start, end: time.Now()})
	s.mu.Unlock()
	return page, err
}

func (s *SlowFetcher) Visits() []visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]visit(nil), s.visits...)
}
