package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "labanalyzer/internal/errors"
)

const apiClientKey contextKey = "api-client"

// APIKeyHeader carries the client's API key
const APIKeyHeader = "X-API-Key"

// ErrUnauthorized is answered when a mutating request lacks a valid API key
var ErrUnauthorized = apierrors.New(http.StatusUnauthorized, "UNAUTHORIZED", "A valid API key is required")

// APIKeyAuth guards mutating requests with a static key table (key to client name).
// Safe methods pass through. An empty table disables the check.
func APIKeyAuth(logger *slog.Logger, errorHandler *apierrors.ErrorHandler, validKeys map[string]string) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "api_key_auth"))

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			apiKey := r.Header.Get(APIKeyHeader)

			clientName, ok := lookupKey(validKeys, apiKey)
			if !ok {
				logger.WarnContext(ctx, "rejected request without valid API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Bool("key_present", apiKey != ""),
				)
				errorHandler.HandleError(w, r, ErrUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, apiClientKey, clientName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIClient returns the client name authenticated by APIKeyAuth, if any
func APIClient(ctx context.Context) string {
	name, _ := ctx.Value(apiClientKey).(string)
	return name
}

func lookupKey(validKeys map[string]string, candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	for key, client := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			return client, true
		}
	}
	return "", false
}

// AuditLog records every request that changes analysis state
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "audit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "audit log",
				slog.String("client", APIClient(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
