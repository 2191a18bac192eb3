package middleware

import (
	"net/http"
	"time"

	"infinite-experiment/logbook/internal/logging"
)

// Logging writes one structured access log line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(lw, r)
		dur := time.Since(start)

		logger := logging.WithRequest(RequestID(r.Context()), r.Method, routePattern(r))
		fields := []interface{}{
			"status_code", lw.statusCode,
			"bytes", lw.bytes,
			"duration_ms", dur.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if lw.statusCode >= http.StatusInternalServerError {
			logger.Warnw("HTTP request failed", fields...)
			return
		}
		logger.Infow("HTTP request completed", fields...)
	})
}
