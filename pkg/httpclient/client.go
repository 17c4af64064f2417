// Package httpclient builds the pooled, retrying HTTP clients used to reach
// external backends.
package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns the settings used for backend clients.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	}
}

// NewTransport returns a connection-pooling transport without retries.
func NewTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// New returns an *http.Client over NewTransport that retries network
// errors and 5xx responses (except 501) with exponential backoff.
func New(cfg Config) *http.Client {
	return &http.Client{
		Transport: &RetryTransport{Base: NewTransport(cfg), Config: cfg},
		Timeout:   cfg.Timeout,
	}
}

// RetryTransport is an http.RoundTripper that retries failed attempts.
// Requests whose body cannot be replayed are sent once.
type RetryTransport struct {
	Base   http.RoundTripper
	Config Config
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	retries := t.Config.MaxRetries
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(req.Context(), t.backoff(attempt)); err != nil {
				return nil, err
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req = req.Clone(req.Context())
				req.Body = body
			}
		}

		resp, err := base.RoundTrip(req)
		if attempt >= retries {
			return resp, err
		}
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			continue
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		_ = resp.Body.Close()
	}
}

// backoff returns RetryWaitMin doubled per attempt, capped at RetryWaitMax.
func (t *RetryTransport) backoff(attempt int) time.Duration {
	wait := t.Config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if t.Config.RetryWaitMax > 0 && wait > t.Config.RetryWaitMax {
		wait = t.Config.RetryWaitMax
	}
	return wait
}

func retryableStatus(code int) bool {
	return code >= 500 && code != http.StatusNotImplemented
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
