package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/helpers"
	"sjsage522/wikicatalog/logger"
	"sjsage522/wikicatalog/services/cache"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

const cooldownKeyPrefix = "wikicatalog:cooldown:"

// HTTPFetcher fetches pages through a rate-limited resty client. Network
// errors and block statuses are retried; a host that keeps answering with a
// block status is put on cooldown in the cache service.
type HTTPFetcher struct {
	client    *resty.Client
	cacheSvc  cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

// NewHTTPFetcher builds the fetch collaborator from the fetch configuration
func NewHTTPFetcher(cfg config.Fetch, cacheSvc cache.CacheService) (*HTTPFetcher, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if cfg.ChallengeBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetTimeout(cfg.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(cfg.RetryWait)
	client.SetRetryMaxWaitTime(cfg.RetryMaxWait)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return resp != nil && (helpers.IsBlockStatus(resp.StatusCode()) || resp.StatusCode() >= http.StatusInternalServerError)
	})

	// every attempt, retries included, waits for a token
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &HTTPFetcher{
		client:    client,
		cacheSvc:  cacheSvc,
		blockTime: cfg.BlockTime,
		log:       logger.ForFetcher(),
	}, nil
}

// Fetch retrieves rawURL. 200 and 404 come back as pages; any other final
// status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*RawPage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.NewValidation("fetcher", fmt.Sprintf("invalid URL %q", rawURL))
	}

	cooled, err := f.waitCooldown(ctx, parsed.Host)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(helpers.BrowserHeaders()).
		Get(rawURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewNetwork(parsed.Host, "fetch "+rawURL, err)
	}

	status := resp.StatusCode()
	if helpers.IsBlockStatus(status) {
		f.startCooldown(parsed.Host)
		if status == http.StatusTooManyRequests {
			return nil, apperrors.NewRateLimit(parsed.Host, f.blockTime)
		}
		return nil, apperrors.NewBotBlock(parsed.Host, status)
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return nil, apperrors.NewNetwork(parsed.Host, fmt.Sprintf("fetch %s unexpected status code: %d", rawURL, status), nil)
	}
	if cooled {
		f.clearCooldown(parsed.Host)
	}

	contentType := resp.Header().Get("Content-Type")
	body, err := helpers.DecodeUTF8(resp.Body(), contentType)
	if err != nil {
		return nil, apperrors.NewParsing(parsed.Host, "decode "+rawURL, err)
	}

	finalURL := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	f.log.Debug().
		Str("url", rawURL).
		Int("status", status).
		Int("bytes", len(body)).
		Dur("elapsed", resp.Time()).
		Msg("Fetched")

	return &RawPage{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  status,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// startCooldown records until when the host should be left alone
func (f *HTTPFetcher) startCooldown(host string) {
	if f.cacheSvc == nil || f.blockTime <= 0 {
		return
	}
	until := time.Now().Add(f.blockTime).UnixNano()
	if err := f.cacheSvc.Set(cooldownKeyPrefix+host, []byte(strconv.FormatInt(until, 10)), f.blockTime); err != nil {
		f.log.Warn().Err(err).Str("host", host).Msg("Failed to record cooldown")
		return
	}
	f.log.Warn().Str("host", host).Dur("block_time", f.blockTime).Msg("Host blocked us, cooling down")
}

// clearCooldown drops the host's cooldown entry
func (f *HTTPFetcher) clearCooldown(host string) {
	if err := f.cacheSvc.Delete(cooldownKeyPrefix + host); err != nil {
		f.log.Warn().Err(err).Str("host", host).Msg("Failed to clear cooldown")
	}
}

// waitCooldown sleeps out an active cooldown for host. It reports whether a
// cooldown entry was found; unreadable entries are removed.
func (f *HTTPFetcher) waitCooldown(ctx context.Context, host string) (bool, error) {
	if f.cacheSvc == nil {
		return false, nil
	}
	value, err := f.cacheSvc.Get(cooldownKeyPrefix + host)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			f.log.Debug().Err(err).Msg("Cooldown lookup failed")
		}
		return false, nil
	}

	until, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		f.log.Warn().Str("host", host).Str("value", string(value)).Msg("Dropping unreadable cooldown")
		f.clearCooldown(host)
		return false, nil
	}
	wait := time.Until(time.Unix(0, until))
	if wait <= 0 {
		return true, nil
	}
	if wait > f.blockTime {
		wait = f.blockTime
	}

	f.log.Info().Str("host", host).Dur("wait", wait).Msg("Waiting for cooldown")
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
