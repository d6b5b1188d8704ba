package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RequestLogger logs every request. Token path segments are redacted.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.LogRequest(r.Method, redactPath(r.URL.Path), r.RemoteAddr, ww.Status(), time.Since(start).Milliseconds())
		})
	}
}

func redactPath(path string) string {
	if !strings.HasPrefix(path, "/rsvp/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/rsvp/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/rsvp/***" + rest[i:]
	}
	return "/rsvp/***"
}

const visitorIdleTimeout = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenRateLimiter throttles token-scoped requests per client IP.
type TokenRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastPrune time.Time
	logger    *logging.Logger
	now       func() time.Time
}

func NewTokenRateLimiter(perMinute, burst int, logger *logging.Logger) *TokenRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perMinute) / 60, // per second
		burst:    burst,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

func (l *TokenRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTimeout {
				delete(l.visitors, key)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *TokenRateLimiter) Middleware(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ip := clientIP(ctx.RemoteAddr())
		if !l.Allow(ip) {
			l.logger.LogSecurity("rate_limit_exceeded", ip, map[string]interface{}{
				"path":   redactPath(ctx.URL().Path),
				"method": ctx.Method(),
			})
			huma.WriteErr(api, ctx, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next(ctx)
	}
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
