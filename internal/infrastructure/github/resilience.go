package github

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
	gh "github.com/google/go-github/v60/github"
)

// ResilienceConfig configures retries and client-side rate limiting of
// GitHub API calls.
type ResilienceConfig struct {
	RetryAttempts    int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	// RateLimitRPM caps requests per minute. Zero disables the limiter.
	RateLimitRPM int
}

// DefaultResilienceConfig returns the retry defaults. Zero waits in a
// supplied config fall back to these values.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RetryAttempts:    3,
		RetryInitialWait: 500 * time.Millisecond,
		RetryMaxWait:     10 * time.Second,
	}
}

type resilience struct {
	cfg     ResilienceConfig
	limiter ratelimit.RateLimiter
}

func newResilience(cfg ResilienceConfig) *resilience {
	def := DefaultResilienceConfig()
	if cfg.RetryInitialWait <= 0 {
		cfg.RetryInitialWait = def.RetryInitialWait
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = max(def.RetryMaxWait, cfg.RetryInitialWait)
	}
	r := &resilience{cfg: cfg}
	if cfg.RateLimitRPM > 0 {
		r.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimitRPM,
			Burst:    cfg.RateLimitRPM,
			Interval: time.Minute,
		})
	}
	return r
}

// call runs op under the rate limiter and retry policy.
func call[T any](ctx context.Context, r *resilience, key string, op func(context.Context) (T, error)) (T, error) {
	if r == nil {
		return op(ctx)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, key); err != nil {
			var zero T
			return zero, err
		}
	}

	if r.cfg.RetryAttempts <= 1 {
		return op(ctx)
	}

	retrier := retry.New[T](retry.Config{
		MaxAttempts:   r.cfg.RetryAttempts,
		InitialDelay:  r.cfg.RetryInitialWait,
		MaxDelay:      r.cfg.RetryMaxWait,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		Jitter:        true,
		IsRetryable:   isRetryableError,
	})
	return retrier.Do(ctx, op)
}

// isRetryableError reports whether a failed GitHub call is worth repeating.
// Typed API errors are judged by status code; anything else falls back to
// message heuristics for transport failures.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return IsRetryableHTTPStatus(respErr.Response.StatusCode)
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "eof") {
		return true
	}
	return false
}

// IsRetryableHTTPStatus returns true for HTTP status codes worth retrying.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
