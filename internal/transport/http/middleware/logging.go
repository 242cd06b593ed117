package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"paycore/internal/requestctx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestRecorder receives one observation per request.
type RequestRecorder interface {
	Record(status int, dur time.Duration)
}

func Logger(metrics RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			dur := time.Since(start)
			if metrics != nil {
				metrics.Record(recorder.status, dur)
			}
			level := slog.LevelInfo
			if recorder.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"durationMs", dur.Milliseconds(),
				"requestId", GetRequestID(r.Context()),
			}
			if actor := requestctx.Actor(r.Context()); actor != "" {
				attrs = append(attrs, "actor", actor)
			}
			slog.Log(r.Context(), level, "request", attrs...)
		})
	}
}
