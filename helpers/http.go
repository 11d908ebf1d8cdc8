package helpers

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://yandex.ru/",
		"https://duckduckgo.com/",
	}
)

// BrowserHeaders returns a randomized set of browser-like request headers.
func BrowserHeaders() map[string]string {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	return map[string]string{
		"User-Agent":                userAgents[rnd.Intn(len(userAgents))],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Referer":                   referers[rnd.Intn(len(referers))],
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "cross-site",
		"Sec-Fetch-User":            "?1",
	}
}

// IsBlockStatus reports whether a status code is how the site signals
// throttling or a bot challenge.
func IsBlockStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, 430, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// DecodeUTF8 converts body to UTF-8 using the Content-Type header and the
// document's own meta declarations.
func DecodeUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}
