package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/services/cache"
	apperrors "sjsage522/wikicatalog/pkg/errors"
)

func testFetchConfig() config.Fetch {
	return config.Fetch{
		Timeout:      5 * time.Second,
		Retries:      2,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
		RateLimit:    1000,
		RateBurst:    10,
		BlockTime:    time.Minute,
	}
}

func newTestFetcher(t *testing.T, cacheSvc cache.CacheService) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(testFetchConfig(), cacheSvc)
	require.NoError(t, err)
	return f
}

func TestHTTPFetcherFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<title>Тип</title>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	page, err := newTestFetcher(t, NewMockCacheService()).Fetch(context.Background(), server.URL+"/old/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, server.URL+"/old/", page.URL)
	assert.Equal(t, server.URL+"/new/", page.FinalURL)
	assert.Equal(t, "<title>Тип</title>", string(page.Body))
}

func TestHTTPFetcherNotFoundIsAPage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	page, err := newTestFetcher(t, nil).Fetch(context.Background(), server.URL+"/missing/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
}

func TestHTTPFetcherRetriesTransientBlock(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	page, err := newTestFetcher(t, NewMockCacheService()).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(page.Body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcherBlockStartsCooldown(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cacheSvc := NewMockCacheService()
	_, err := newTestFetcher(t, cacheSvc).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeBotBlock, apperrors.TypeOf(err))
	assert.Equal(t, int32(3), calls.Load())

	u, _ := url.Parse(server.URL)
	_, cerr := cacheSvc.Get(cooldownKeyPrefix + u.Host)
	assert.NoError(t, cerr)
}

func TestHTTPFetcherServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(t, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.TypeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestHTTPFetcherWaitsOutCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	cacheSvc := NewMockCacheService()
	until := time.Now().Add(50 * time.Millisecond).UnixNano()
	require.NoError(t, cacheSvc.Set(cooldownKeyPrefix+u.Host, []byte(strconv.FormatInt(until, 10)), time.Minute))

	start := time.Now()
	_, err := newTestFetcher(t, cacheSvc).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, time.Since(start) >= 40*time.Millisecond, "fetch should wait for the cooldown")

	// the host answered, so its cooldown is gone
	_, cerr := cacheSvc.Get(cooldownKeyPrefix + u.Host)
	assert.ErrorIs(t, cerr, cache.ErrMiss)

	// cooldown longer than the deadline gives up with the context error
	until = time.Now().Add(time.Minute).UnixNano()
	require.NoError(t, cacheSvc.Set(cooldownKeyPrefix+u.Host, []byte(strconv.FormatInt(until, 10)), time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = newTestFetcher(t, cacheSvc).Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	_, err := newTestFetcher(t, nil).Fetch(context.Background(), "http://[::1")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestHTTPFetcherDropsUnreadableCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	cacheSvc := NewMockCacheService()
	require.NoError(t, cacheSvc.Set(cooldownKeyPrefix+u.Host, []byte("soon"), time.Minute))

	page, err := newTestFetcher(t, cacheSvc).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(page.Body))

	_, cerr := cacheSvc.Get(cooldownKeyPrefix + u.Host)
	assert.ErrorIs(t, cerr, cache.ErrMiss)
}

func TestHTTPFetcherTooManyRequestsIsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cacheSvc := NewMockCacheService()
	_, err := newTestFetcher(t, cacheSvc).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.TypeOf(err))
	assert.True(t, apperrors.IsRetryable(err))

	u, _ := url.Parse(server.URL)
	_, cerr := cacheSvc.Get(cooldownKeyPrefix + u.Host)
	assert.NoError(t, cerr)
}
