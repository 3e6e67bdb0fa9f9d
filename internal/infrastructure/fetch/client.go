package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"blogdiscover/internal/config"
	"blogdiscover/internal/infrastructure/ratelimit"
	"blogdiscover/internal/urlutil"
)

// Response carries the decoded body of a completed request. HTTP error
// statuses are data here, not errors; callers classify them.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is the single outbound HTTP path of the crawler. Every Get is
// rate-limited by the target's canonical domain before the request goes
// out, and HTML bodies are transcoded to UTF-8.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.PerDomain
	userAgent string
	maxBody   int64
}

// New builds a client from HTTP settings and the shared per-domain limiter.
func New(cfg config.HTTPConfig, limiter *ratelimit.PerDomain) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
	return &Client{
		http:      &http.Client{Transport: transport},
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

// Get fetches a URL with the given per-request timeout. Transport
// failures and timeouts return an error; HTTP error statuses return a
// Response for the caller to interpret.
func (c *Client) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	if err := c.limiter.Wait(ctx, urlutil.CanonicalDomain(rawURL)); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") {
		body = toUTF8(body, contentType)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// toUTF8 transcodes a body using the Content-Type charset or in-document
// meta hints. On any failure the raw bytes pass through unchanged.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}
