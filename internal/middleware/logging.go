// Package middleware contains the HTTP middleware that is not tied to a
// single feature. Auth lives next to the token code in internal/auth.
//
// MIDDLEWARE SHAPE:
//
//	func(next http.Handler) http.Handler
//
// chi's Use() takes exactly this shape, so anything here composes with
// chi's own RequestID / RealIP / Recoverer.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// statusRecorder remembers the status code and body size of a response.
// http.ResponseWriter has no getter for either, so we embed it and
// intercept the two calls that set them.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Logger logs one line per request once the handler has returned.
//
// LEVEL BY OUTCOME:
//
//	5xx → Error
//	4xx → Warn   (bad input, 401s and 404s are normal traffic, but worth seeing)
//	else → Info
//
// The request id comes from chimiddleware.RequestID, so Logger must be
// registered after it. The same id is attached to "request failed" lines
// written by the handlers, which is how a 500 is traced back to its cause.
//
// Request bodies and the Authorization header are never logged.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", rec.bytes),
			)
		})
	}
}
