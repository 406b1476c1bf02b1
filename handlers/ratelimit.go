package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// refreshWindow is the period the refresh rate limit is counted over.
const refreshWindow = time.Minute

// RefreshRateLimit limits how often clients can force a playlist refresh.
// Each upstream fetch is expensive, so the limit is applied per client IP.
// A limit of zero disables rate limiting.
func RefreshRateLimit(requestLimit int) func(http.Handler) http.Handler {
	if requestLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		requestLimit,
		refreshWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(refreshWindow.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after_seconds":%d}`, int(refreshWindow.Seconds()))
		}),
	)
}
