// Package youtube talks to the YouTube web frontend: search, watch pages,
// comment pagination and playlist listings.
package youtube

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/aresapp/ares-server/internal/ratelimit"
	"github.com/aresapp/ares-server/internal/retry"
)

const (
	defaultBaseURL = "https://www.youtube.com"
	defaultTimeout = 10 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 5

	webClientVersion = "2.20250222.10.00"

	// Consent cookie that skips the EU consent interstitial.
	consentCookie = "SOCS=CAISNQgDEitib3FfaWRlbnRpdHlmcm9udGVuZHVpc2VydmVyXzIwMjMwODI5LjA3X3AxGgJlbiACGgYIgLC_pwY"

	maxPageBytes = 8 << 20
	maxAPIBytes  = 4 << 20
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// Config configures a Client.
type Config struct {
	// BaseURL overrides https://www.youtube.com, for tests.
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             retry.Config
}

// Client is a rate-limited YouTube web client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	retry   retry.Config
	baseURL string
	logger  *slog.Logger
}

// New creates a client. Zero config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.HTTP
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter: ratelimit.New(cfg.RequestsPerSecond, defaultBurst),
		retry:   cfg.Retry,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cookie", consentCookie)
}

// getPage fetches an HTML page.
func (c *Client) getPage(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, maxPageBytes)
}

// post sends an innertube API request with the WEB client headers.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", endpoint, err)
	}
	return c.do(ctx, http.MethodPost, "/youtubei/v1/"+endpoint+"?prettyPrint=false", body, maxAPIBytes)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, limit int64) ([]byte, error) {
	target := c.baseURL + path

	return retry.Do(ctx, c.retry, retry.Transient, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.WaitURL(ctx, target); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Youtube-Client-Name", "1")
			req.Header.Set("X-Youtube-Client-Version", webClientVersion)
			req.Header.Set("Origin", c.baseURL)
		}

		c.logger.Debug("youtube request", "method", method, "path", path)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &retry.StatusError{StatusCode: resp.StatusCode, URL: path}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return data, nil
	})
}

// webContext is the default innertube context for the WEB client.
func webContext() map[string]any {
	return map[string]any{
		"client": map[string]any{
			"clientName":    "WEB",
			"clientVersion": webClientVersion,
			"hl":            "en",
			"gl":            "US",
		},
	}
}
