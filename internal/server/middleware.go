package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/gnemet/slidegen/internal/config"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// responseWriter captures the status code and size for logging.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestLogger(r *http.Request, logger *slog.Logger) *slog.Logger {
	if id := RequestID(r.Context()); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}

// requestIDMiddleware keeps a caller supplied id or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		requestLogger(r, s.logger).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"bytes", wrapped.size,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestLogger(r, s.logger).Error("panic recovered in HTTP handler", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:   msgInternal,
					Details: fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies the per-client limit to /api/ routes.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && r.Method != http.MethodOptions {
			if !s.limiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, msgRateLimited)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

const limiterIdle = 10 * time.Minute

// clientLimiter keeps one token bucket per client. Buckets idle for
// limiterIdle are dropped.
type clientLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limiters: cache.New(limiterIdle, limiterIdle/2),
		limit:    rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:    burst,
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	var l *rate.Limiter
	if v, ok := c.limiters.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(c.limit, c.burst)
	}
	// refresh the expiry on every hit
	c.limiters.SetDefault(key, l)
	c.mu.Unlock()
	return l.Allow()
}

// clientIP is the remote host. Forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
