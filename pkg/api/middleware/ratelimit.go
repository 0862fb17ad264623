package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"waterwatch-hq/healthimpact/pkg/api/types"
	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/telemetry/logging"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-client token bucket rate limiting. Clients are
// keyed by remote IP, or by the first X-Forwarded-For hop when the service
// runs behind a trusted proxy.
type RateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientLimiter
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	trustForward bool
	now          func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter creates a limiter from cfg and starts the goroutine that
// forgets idle clients. Call Stop to release it.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = config.DefaultRateLimitBurst
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = config.DefaultRateLimitIdleTTL
	}

	rl := &RateLimiter{
		clients:      make(map[string]*clientLimiter),
		limit:        rate.Limit(cfg.RequestsPerSecond),
		burst:        burst,
		idleTTL:      idleTTL,
		trustForward: cfg.TrustForwardedFor,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = cl
	}
	cl.lastSeen = rl.now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops clients not seen within the idle TTL.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// ClientKey returns the address requests from r are accounted to.
func (rl *RateLimiter) ClientKey(r *http.Request) string {
	if rl.trustForward {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the client's budget with 429 and a
// Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := rl.ClientKey(r)
		ctx := logging.WithClientIP(r.Context(), client)

		if !rl.Allow(client) {
			retryAfter := 1
			if rl.limit > 0 {
				retryAfter = int(math.Ceil(1 / float64(rl.limit)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(rl.limit), 'f', -1, 64))
			writeError(w, http.StatusTooManyRequests,
				types.NewRateLimitError("Too many requests, slow down"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
