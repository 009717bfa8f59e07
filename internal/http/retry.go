package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"anime-dubber/internal/config"
)

// RetryConfig configures retry behavior for HTTP requests.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	BackoffFactor   float64
	RetryableStatus []int // HTTP status codes that should trigger a retry
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   config.DefaultMaxRetries,
		InitialDelay:  config.DefaultRetryDelayBase,
		BackoffFactor: 2.0,
		RetryableStatus: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// NoRetry sends a request exactly once. Used for calls with side effects
// that must not be repeated.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

func isRetryableStatus(status int, retryable []int) bool {
	for _, s := range retryable {
		if s == status {
			return true
		}
	}
	return false
}

// DoWithRetryContext executes an HTTP request with exponential backoff.
// Requests with a body must be built with http.NewRequestWithContext from a
// bytes.Reader, bytes.Buffer or strings.Reader so the body can be replayed.
// A retryable status on the final attempt is returned as the response.
func DoWithRetryContext(ctx context.Context, client *http.Client, req *http.Request, cfg RetryConfig) (*http.Response, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		switch {
		case err != nil:
			lastErr = err
		case isRetryableStatus(resp.StatusCode, cfg.RetryableStatus) && attempt < cfg.MaxAttempts:
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt < cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		}
	}

	// Report the context error so callers can detect deadlines.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, ctxErr)
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
