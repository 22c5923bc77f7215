package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// RetryConfig bounds retries around model calls.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int
	// InitialInterval is the first backoff delay; it doubles per attempt.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig matches the provider's transient-failure profile:
// two retries, half a second to start, capped at eight seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// retryablePatterns are substrings of provider errors worth retrying.
// Anything else (auth, safety blocks, bad requests) fails immediately.
var retryablePatterns = []string{
	"rate limit",
	"quota",
	"429",
	"500",
	"502",
	"503",
	"504",
	"internal server",
	"unavailable",
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// generateWithRetry runs fn with exponential backoff on retryable errors.
// Context cancellation aborts between attempts.
func generateWithRetry(ctx context.Context, logger *slog.Logger, cfg RetryConfig, fn func(context.Context) (string, error)) (string, error) {
	interval := cfg.InitialInterval
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(interval):
			}
			interval *= 2
			if interval > cfg.MaxInterval {
				interval = cfg.MaxInterval
			}
		}

		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
		logger.Warn("model call failed, retrying",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"error", err,
		)
	}

	return "", lastErr
}
