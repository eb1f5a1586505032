// Package httpx implements the retrying HTTP transport used for every
// outbound call: Sleeper, ESPN, FantasyPros, and both AI SDK clients. It is
// transport only; payload shaping belongs to the callers.
package httpx

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// NetworkError is the single error surfaced after retries are exhausted.
// Intermediate failures are absorbed; only the last cause is carried.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("httpx: %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Policy controls retry behavior. MaxRetries counts additional attempts, so
// a request makes exactly MaxRetries+1 attempts before giving up.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration // per attempt
}

// DefaultPolicy matches the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// Transport is a retrying http.RoundTripper with exponential backoff and
// jitter. Transient failures (connection errors, per-attempt timeouts, 5xx,
// 429) are retried; other 4xx responses are returned as-is.
type Transport struct {
	Base   http.RoundTripper
	Policy Policy

	log    zerolog.Logger
	sleep  func(time.Duration)       // test hook
	jitter func(time.Duration) int64 // test hook, returns [0, d)
}

// NewTransport builds a Transport over base (http.DefaultTransport if nil).
func NewTransport(base http.RoundTripper, policy Policy, log zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		Base:   base,
		Policy: policy,
		log:    log.With().Str("component", "httpx").Logger(),
		sleep:  time.Sleep,
		jitter: func(d time.Duration) int64 { return rand.Int63n(int64(d)) },
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.Policy.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := req.Context().Err(); err != nil {
			break
		}

		resp, err := t.attempt(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		var retryAfter time.Duration
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			retryAfter = parseRetryAfter(resp)
			// Drain so the connection can be reused before retrying.
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}

		if attempt == attempts {
			break
		}
		// A request body that cannot be replayed cannot be retried.
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			break
		}

		delay := t.backoff(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}
		t.log.Debug().
			Str("url", req.URL.String()).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying request")
		t.sleep(delay)
	}

	return nil, &NetworkError{URL: req.URL.String(), Attempts: attempts, Err: lastErr}
}

// attempt performs one try with its own timeout.
func (t *Transport) attempt(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cancel := context.CancelFunc(func() {})
	if t.Policy.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.Policy.Timeout)
	}

	attemptReq := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		attemptReq.Body = body
	}

	resp, err := t.Base.RoundTrip(attemptReq)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// backoff computes base*2^(n-1) capped at MaxDelay, plus uniform jitter.
func (t *Transport) backoff(attempt int) time.Duration {
	delay := t.Policy.BaseDelay << (attempt - 1)
	if delay > t.Policy.MaxDelay || delay <= 0 {
		delay = t.Policy.MaxDelay
	}
	return delay + time.Duration(t.jitter(delay))
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// cancelReadCloser ties an attempt's timeout cancelation to body close so
// the context is released once the caller finishes reading.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
