// Package trace stamps each request with an ID, puts a request-scoped logger
// in the context and logs completion with status and duration.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pondo/internal/log"
)

// HeaderRequestID is read from the request when present and echoed back.
const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
}

type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
	total     int64
	errors    int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{logger: log.OrDiscard(logger), extractIP: extractIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		logger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = log.NewContext(ctx, logger)
		r = r.WithContext(ctx)

		atomic.AddInt64(&m.total, 1)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
			atomic.AddInt64(&m.errors, 1)
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		logger.Log(ctx, level, "HTTP request completed",
			log.FieldComponent, logger.Component(),
			"method", r.Method,
			"path", r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func (m *Middleware) Metrics() Metrics {
	return Metrics{
		TotalRequests: atomic.LoadInt64(&m.total),
		ServerErrors:  atomic.LoadInt64(&m.errors),
	}
}
