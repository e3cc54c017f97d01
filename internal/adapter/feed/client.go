// Package feed retrieves raw text documents from the upstream hydrometric
// sources. It is a pure I/O boundary: bodies come back verbatim for the
// domain parsers, with no interpretation here beyond the status code.
package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
	"github.com/tom-villanueva/marea-tigre/internal/observability"
)

const userAgent = "marea-tigre/1.0"

// Result is one upstream response. OK reflects a 2xx status; the body is
// retained either way since some sources put diagnostics in error pages.
type Result struct {
	StatusCode int
	Body       string
	OK         bool
}

// Fetcher retrieves the document behind a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// Options configure a Client.
type Options struct {
	Timeout time.Duration

	// LegacyTLS skips certificate verification and re-enables retired CBC
	// cipher suites. The SHN telemetry endpoint still terminates TLS on a
	// stack modern clients refuse outright; nothing else should set this.
	LegacyTLS bool
}

// Client fetches source documents over HTTP.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a fetcher with the given transport options.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	client := &http.Client{Timeout: opts.Timeout}
	if opts.LegacyTLS {
		client.Transport = legacyTransport()
	}
	return &Client{
		httpClient: client,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch retrieves rawURL. Transport failures and non-2xx statuses both
// surface as ErrUpstreamUnavailable; for non-2xx the Result still carries
// the status and body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Result, error) {
	return c.fetch(ctx, c.httpClient, rawURL)
}

// FetchWithSession fetches target after a warm-up request, carrying the
// cookies the warm-up established. The SHN portal hands out a session cookie
// on its landing page and serves telemetry only to clients presenting it. A
// failed warm-up is logged and the target fetch proceeds anyway; the
// telemetry parser recognizes the challenge page that results.
func (c *Client) FetchWithSession(ctx context.Context, warmupURL, targetURL string) (Result, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Result{}, fmt.Errorf("create cookie jar: %w", err)
	}
	session := *c.httpClient
	session.Jar = jar

	if _, err := c.fetch(ctx, &session, warmupURL); err != nil {
		c.logger.Warn("session warm-up failed", "url", warmupURL, "error", err)
	}
	return c.fetch(ctx, &session, targetURL)
}

func (c *Client) fetch(ctx context.Context, client *http.Client, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	source := req.URL.Host
	start := time.Now()
	resp, err := client.Do(req)
	c.metrics.FeedFetchSeconds.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues(source, "error").Inc()
		return Result{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues(source, "error").Inc()
		return Result{}, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}

	result := Result{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !result.OK {
		c.metrics.FeedFetches.WithLabelValues(source, "error").Inc()
		return result, fmt.Errorf("%w: %s returned status %d", domain.ErrUpstreamUnavailable, source, resp.StatusCode)
	}
	c.metrics.FeedFetches.WithLabelValues(source, "success").Inc()
	return result, nil
}

// legacyTransport matches the SHN endpoint's TLS 1.0 + CBC configuration.
func legacyTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS10,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
				tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
				tls.TLS_RSA_WITH_AES_128_CBC_SHA,
				tls.TLS_RSA_WITH_AES_256_CBC_SHA,
				tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
			},
		},
	}
}

// sourceLabel is the low-cardinality metrics label for a source URL.
func sourceLabel(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
