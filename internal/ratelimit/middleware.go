package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Policy derives the limit key from a request and sets the window thresholds.
type Policy struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler applies a Policy in front of another http.Handler. Limiter failures
// fail open so a Redis outage never blocks traffic; OnError receives the
// cause when set.
type Handler struct {
	Limiter Limiter
	Policy  Policy
	OnError func(error)
}

// Middleware wraps next with rate limiting.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Policy.Key == nil {
			next.ServeHTTP(w, r)
			return
		}

		decision, err := h.Limiter.Allow(r.Context(), h.Policy.Key(r), h.Policy.Window, h.Policy.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := h.Policy.Max
		if limit < 0 {
			limit = 0
		}
		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			hdr.Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
