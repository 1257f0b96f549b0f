package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
)

// Logger is a middleware that logs HTTP requests. It must run after chi's
// RequestID middleware; the request id is copied into the context for
// logging.RequestID and echoed in the X-Request-Id response header.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rqID := chimiddleware.GetReqID(r.Context())
		if rqID != "" {
			w.Header().Set(chimiddleware.RequestIDHeader, rqID)
			r = r.WithContext(logging.WithRequestID(r.Context(), rqID))
		}

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		// Strip CR/LF from user-supplied values before logging.
		sanitize := strings.NewReplacer("\n", "", "\r", "").Replace
		level := slog.LevelInfo
		if wrapped.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http request",
			slog.String("rqID", rqID),
			slog.String("method", sanitize(r.Method)),
			slog.String("path", sanitize(r.URL.Path)),
			slog.Int("status", wrapped.statusCode),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
