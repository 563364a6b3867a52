package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table; least recently seen clients
// are evicted first and start over with a full bucket.
const maxTrackedClients = 10000

// RateLimiter is a per-client token bucket limiter.
// Each client may burst up to requests and refills at requests per window.
type RateLimiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	trusted []netip.Prefix
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a new rate limiter
// requests: maximum number of requests allowed per window
// window: time window duration (e.g., 1 minute)
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		// Only fails for a non-positive size
		panic(err)
	}
	return &RateLimiter{
		clients: clients,
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
	}
}

// Middleware returns a rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(clientID string) bool {
	limiter, ok := rl.clients.Get(clientID)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		// Another request may have raced us; keep whichever got in first.
		if existing, found, _ := rl.clients.PeekOrAdd(clientID, limiter); found {
			limiter = existing
		}
	}
	return limiter.Allow()
}

// TrustProxies lets requests arriving from these networks name the client
// in X-Forwarded-For or X-Real-IP. With no trusted proxies the headers are
// ignored and every client is keyed by its socket address.
func (rl *RateLimiter) TrustProxies(prefixes []netip.Prefix) {
	rl.trusted = append([]netip.Prefix(nil), prefixes...)
}

// clientIP keys a request. Forwarding headers count only when the peer is
// a trusted proxy; the X-Forwarded-For chain is then read right to left and
// the first hop outside the trusted networks wins.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !rl.isTrusted(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (rl *RateLimiter) isTrusted(host string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
