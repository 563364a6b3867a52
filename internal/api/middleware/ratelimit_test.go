package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5678"), "same host, different port")

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}

func TestRateLimiter_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i+1))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusOK,
		http.StatusOK,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes, "rotating forwarding headers must not reset the bucket")
}

func TestRateLimiter_ClientIP(t *testing.T) {
	proxies := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:4000", want: "192.0.2.1"},
		{name: "remote addr without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{name: "untrusted peer ignores forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "untrusted peer ignores real ip", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "no proxies configured", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "trusted proxy forwarded", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "spoofed left hop skipped", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 10.0.0.2"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "all hops trusted", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "10.0.0.3, 10.0.0.2"}, remote: "10.0.0.1:1", want: "10.0.0.3"},
		{name: "trusted proxy real ip", trusted: proxies, headers: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "trusted ipv6 peer", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "[::1]:8080", want: "203.0.113.5"},
		{name: "trusted peer without headers", trusted: proxies, remote: "10.0.0.1:1", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(1, time.Minute)
			rl.TrustProxies(tt.trusted)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}
