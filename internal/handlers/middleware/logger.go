package middleware

import (
	"net/http"
	"time"
)

type requestLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type logWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *logWriter) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *logWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// Let http.ResponseController reach the wrapped writer
func (w *logWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// LoggerMiddleware logs every request once it is served
// Server errors are logged at error level, client errors at warn, the rest at info
// Redirects carry its location, so anonymous requests sent to the landing route are visible
func LoggerMiddleware(l requestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &logWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lw, r)

			args := []any{
				"method", r.Method,
				"uri", r.RequestURI,
				"duration", time.Since(start),
				"status", lw.status,
				"size", lw.size,
			}
			if loc := lw.Header().Get("Location"); loc != "" {
				args = append(args, "location", loc)
			}

			switch {
			case lw.status >= http.StatusInternalServerError:
				l.Error("got HTTP request", args...)
			case lw.status >= http.StatusBadRequest:
				l.Warn("got HTTP request", args...)
			default:
				l.Info("got HTTP request", args...)
			}
		})
	}
}
