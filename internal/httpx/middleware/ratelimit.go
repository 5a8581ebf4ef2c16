package middleware

import (
	"net"
	"net/http"

	"plugin-server/internal/httpx/response"
	"plugin-server/internal/observability"
	"plugin-server/internal/ratelimit"
)

// RateLimit rejects clients that exhausted their token bucket with a bare
// 429. A nil limiter disables the check.
func RateLimit(limiter *ratelimit.Limiter, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				metrics.IncCounter(observability.CounterRateLimited)
				w.Header().Set("Retry-After", "1")
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey expects RemoteAddr to be rewritten by chi's RealIP when the
// server sits behind a proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
