package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the provider may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// getter performs rate limited GET requests retried with exponential backoff.
type getter struct {
	client  *http.Client
	limiter *rate.Limiter
	header  http.Header
	backoff func() backoff.BackOff
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func newGetter(proxyURL string, requestsPerSecond float64) *getter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &getter{
		client:  newHTTPClient(proxyURL),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		header:  http.Header{},
		backoff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// get returns the body of a 200 response. 4xx responses other than 429 are
// not retried.
func (g *getter) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	op := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range g.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(b), 200)}
			if !serr.Retryable() {
				return backoff.Permanent(serr)
			}
			return serr
		}
		body = b
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(g.backoff(), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
