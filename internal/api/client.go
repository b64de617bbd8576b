package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// apiPrefix is prepended to every endpoint path.
const apiPrefix = "/api/v1"

// defaultUserAgent identifies the client to the backend.
const defaultUserAgent = "securescan-cli/1.0"

// TokenStore holds the session's credential pair. The client reads tokens
// before every authenticated request, rotates them after a successful
// refresh, and clears them when a refresh is impossible or fails.
type TokenStore interface {
	// Tokens returns the current access and refresh tokens. Either may be
	// empty when no session is held.
	Tokens() (access, refresh string)

	// SetTokens replaces the stored credential pair.
	SetTokens(access, refresh string) error

	// Clear destroys the stored session.
	Clear() error
}

// Options holds configuration for creating a new Client.
type Options struct {
	// BaseURL is the root of the backend, e.g. "https://api.securescan.io".
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// ProxyURL is an optional HTTP or SOCKS5 proxy.
	ProxyURL string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// MaxRPS is the maximum requests per second (0 = unlimited).
	MaxRPS float64

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Stats holds aggregate request statistics for the client.
type Stats struct {
	TotalRequests int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Client is the authenticated HTTP client for the SecureScan API. It
// attaches the session's bearer token to every authenticated request and
// transparently refreshes an expired access token once per logical call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenStore
	userAgent  string
	limiter    *rate.Limiter
	logger     *slog.Logger

	// refreshMu serializes token refreshes so that concurrent 401s
	// coalesce into a single refresh call.
	refreshMu sync.Mutex

	mu              sync.RWMutex
	totalRequests   int64
	totalDurationNs int64
}

// New creates a Client with the given options. tokens supplies and receives
// the session credential pair; it must not be nil.
func New(opts Options, tokens TokenStore) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("api: nil token store")
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base URL %q: missing scheme or host", opts.BaseURL)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
		ForceAttemptHTTP2: true,
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("api: invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		tokens:    tokens,
		userAgent: userAgent,
		logger:    slog.Default().With("component", "api"),
	}
	if opts.MaxRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}
	return c, nil
}

// call describes one logical API call. The retry bookkeeping lives in the
// attempt counter passed through do, never on the request itself.
type call struct {
	method string
	path   string
	query  url.Values
	body   any

	// out receives the decoded JSON response when non-nil.
	out any

	// sink receives the raw response body when non-nil (binary downloads).
	sink io.Writer

	// authenticated marks calls that carry the bearer token and are
	// eligible for the refresh-and-retry-once path.
	authenticated bool
}

// do executes a call. Authenticated calls that fail with 401 are retried
// exactly once after a successful token refresh; a second 401, a failed
// refresh, or a missing refresh token propagates the failure. The session
// is torn down when recovery is impossible.
func (c *Client) do(ctx context.Context, cl *call) error {
	const maxAttempts = 2

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var bearer string
		if cl.authenticated {
			bearer, _ = c.tokens.Tokens()
		}

		err := c.send(ctx, cl, bearer)
		if err == nil {
			return nil
		}
		if !cl.authenticated || attempt > 0 || !IsUnauthorized(err) {
			return err
		}

		// First 401 on an authenticated call: rotate the token pair and
		// loop for the single retry. On refresh failure the original 401
		// is what the caller sees.
		if refreshErr := c.refreshAfter(ctx, bearer); refreshErr != nil {
			c.logger.Debug("token refresh failed, clearing session", "err", refreshErr)
			if clearErr := c.tokens.Clear(); clearErr != nil {
				c.logger.Debug("session clear failed", "err", clearErr)
			}
			return err
		}
		c.logger.Debug("access token refreshed, retrying request",
			"method", cl.method, "path", cl.path)
	}

	// Unreachable: the second iteration always returns.
	return errors.New("api: request not completed")
}

// refreshAfter exchanges the refresh token for a new pair and persists it.
// Refreshes are single-flight: a caller that blocked behind an in-flight
// refresh finds the token already rotated and skips its own refresh call.
func (c *Client) refreshAfter(ctx context.Context, staleAccess string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, refresh := c.tokens.Tokens()
	if access != "" && access != staleAccess {
		return nil
	}
	if refresh == "" {
		return errors.New("api: no refresh token held")
	}

	var pair TokenPair
	err := c.send(ctx, &call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   refreshRequest{RefreshToken: refresh},
		out:    &pair,
	}, "")
	if err != nil {
		return fmt.Errorf("api: refresh token: %w", err)
	}
	return c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken)
}

// send performs a single HTTP round trip with no retry logic.
func (c *Client) send(ctx context.Context, cl *call, bearer string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: rate limiter: %w", err)
		}
	}

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + apiPrefix + cl.path
	if len(cl.query) > 0 {
		endpoint.RawQuery = cl.query.Encode()
	}

	var bodyReader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("api: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	c.mu.Lock()
	c.totalRequests++
	c.totalDurationNs += duration.Nanoseconds()
	c.mu.Unlock()

	if err != nil {
		// Network failure: no response received.
		return fmt.Errorf("api: %s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseError(resp.StatusCode, body)
	}

	switch {
	case cl.sink != nil:
		if _, err := io.Copy(cl.sink, resp.Body); err != nil {
			return fmt.Errorf("api: read response body: %w", err)
		}
	case cl.out != nil:
		if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
			return fmt.Errorf("api: decode response body: %w", err)
		}
	}
	return nil
}

// Stats returns aggregate request statistics.
func (c *Client) Stats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &Stats{
		TotalRequests: c.totalRequests,
		TotalDuration: time.Duration(c.totalDurationNs),
	}
	if c.totalRequests > 0 {
		stats.AvgDuration = time.Duration(c.totalDurationNs / c.totalRequests)
	}
	return stats
}
