package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// RateLimitByIP limits each client address to requests per window. The
// address is resolved the same way as for login tracking, so forwarding
// headers count only behind a trusted proxy.
func RateLimitByIP(requests int, window time.Duration, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w)
		}),
	)
}

// AuthRateLimit guards the unauthenticated credential endpoints.
func AuthRateLimit(perMinute int, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return RateLimitByIP(perMinute, time.Minute, ipConfig)
}
