// Package retry runs operations with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// JitterFraction spreads each wait by +/- this fraction.
	JitterFraction float64
}

// HTTP is suitable for page and API fetches.
var HTTP = Config{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	Multiplier:     2.0,
	JitterFraction: 0.2,
}

// Attempts returns a config with n attempts and short backoff, as used for
// external tool invocations.
func Attempts(n int) Config {
	return Config{
		MaxAttempts:    n,
		InitialBackoff: time.Second,
		MaxBackoff:     15 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Classifier decides whether an error is retryable.
type Classifier func(error) bool

// Always retries everything except context errors and permanent errors.
func Always(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

// Transient retries network failures and retryable HTTP statuses only.
func Transient(err error) bool {
	if !Always(err) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return RetryableStatus(statusErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// StatusError is an HTTP response with an unexpected status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryableStatus returns true for HTTP status codes worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do calls fn until it succeeds, the classifier rejects the error, attempts
// run out, or ctx is done. The error of the last attempt is returned.
func Do[T any](ctx context.Context, cfg Config, classify Classifier, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if classify == nil {
		classify = Always
	}
	attempts := max(1, cfg.MaxAttempts)
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !classify(err) || attempt == attempts {
			break
		}

		wait := min(backoff+jitter(backoff, cfg.JitterFraction), cfg.MaxBackoff)
		slog.Debug("retrying", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		backoff = min(time.Duration(float64(backoff)*cfg.Multiplier), cfg.MaxBackoff)
	}
	return zero, lastErr
}

// Run is Do for operations without a result.
func Run(ctx context.Context, cfg Config, classify Classifier, fn func(context.Context) error) error {
	_, err := Do(ctx, cfg, classify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return 0
	}
	spread := float64(d) * fraction
	return time.Duration((rand.Float64() - 0.5) * 2 * spread)
}
