package repository

import (
	"context"
	"strings"
	"time"
)

// IsBusyError reports whether err is SQLite refusing a statement because
// another connection holds the lock. Such errors succeed when retried.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// WithRetry runs fn and retries it up to maxRetries times while it fails with
// a busy error, doubling the pause after each attempt.
func WithRetry[T any](ctx context.Context, maxRetries int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if !IsBusyError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff << attempt):
		}
	}

	return result, err
}
