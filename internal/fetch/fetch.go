// Package fetch provides the retrying HTTP client shared by the collector
// and the fulltext hydrator. It classifies failures into the pipeline's
// error taxonomy so callers record outcomes instead of raising them.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/execbrief/internal/cache"
)

// Class buckets a fetch result per the pipeline taxonomy.
type Class string

const (
	ClassOK         Class = "ok"
	ClassTimeout    Class = "timeout"
	ClassHTTPError  Class = "http_error"
	ClassBlocked    Class = "blocked"
	ClassConnection Class = "connection_error"
)

// defaultMaxAttempts is the initial attempt plus two retries.
const defaultMaxAttempts = 3

// Outcome is the result of one Get, successful or not.
type Outcome struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Status      int
	Class       Class
	Retries     int
	Err         error

	etag, lastMod string
}

// Client wraps http.Client with timeouts, bounded retry with exponential
// backoff and jitter, and failure classification. 403/429 responses are
// classified blocked and never retried; other 4xx are permanent http_error.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero means the default
	// of three attempts, so transient failures get two retries.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and conditional headers.
	Cache *cache.HTTPCache
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int
	// BackoffBase is the first retry delay, doubled per retry with jitter.
	// Zero means 250ms.
	BackoffBase time.Duration

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get issues a GET and returns a classified Outcome. Outcome.Err is non-nil
// for every Class other than ClassOK.
func (c *Client) Get(ctx context.Context, rawURL string) Outcome {
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	base := c.BackoffBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	var out Outcome
	for i := 0; i < attempts; i++ {
		out = c.tryOnce(ctx, rawURL, etag, lastMod)
		out.Retries = i
		if out.Class == ClassOK {
			if c.Cache != nil && out.Status == http.StatusOK {
				_ = c.Cache.Save(ctx, rawURL, out.ContentType, out.etag, out.lastMod, out.Body)
			}
			if out.Status == http.StatusNotModified && c.Cache != nil {
				if cached, err := c.Cache.LoadBody(ctx, rawURL); err == nil {
					out.Body = cached
				}
			}
			return out
		}
		// blocked and plain 4xx are permanent; only transient classes retry.
		if !retryable(out.Class) || i == attempts-1 || ctx.Err() != nil {
			return out
		}
		delay := base << i
		delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		select {
		case <-ctx.Done():
			out.Class = ClassTimeout
			out.Err = ctx.Err()
			return out
		case <-time.After(delay):
		}
	}
	return out
}

func retryable(c Class) bool {
	return c == ClassTimeout || c == ClassConnection
}

// tryOnce performs a single attempt and classifies the result.
func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) Outcome {
	c.acquire()
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Outcome{Class: ClassConnection, Err: fmt.Errorf("new request: %w", err)}
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return Outcome{Class: ClassConnection, Err: fmt.Errorf("unsupported URL scheme: %q", rawURL)}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Outcome{Class: ClassTimeout, Err: err}
		}
		return Outcome{Class: ClassConnection, Err: err}
	}
	defer resp.Body.Close()

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{Status: resp.StatusCode, FinalURL: final, Class: ClassBlocked,
			Err: fmt.Errorf("blocked by remote: %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return Outcome{Status: resp.StatusCode, FinalURL: final, Class: ClassConnection,
			Err: fmt.Errorf("server error: %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotModified:
		return Outcome{Status: resp.StatusCode, FinalURL: final, Class: ClassOK,
			ContentType: resp.Header.Get("Content-Type"),
			etag:        resp.Header.Get("ETag"), lastMod: resp.Header.Get("Last-Modified")}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Outcome{Status: resp.StatusCode, FinalURL: final, Class: ClassHTTPError,
			Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Status: resp.StatusCode, FinalURL: final, Class: ClassConnection,
			Err: fmt.Errorf("read body: %w", err)}
	}
	return Outcome{
		Body:        b,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    final,
		Status:      resp.StatusCode,
		Class:       ClassOK,
		etag:        resp.Header.Get("ETag"),
		lastMod:     resp.Header.Get("Last-Modified"),
	}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
