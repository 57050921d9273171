package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/giygas/kalimati-scraper/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var loopbackProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.1/32"),
	netip.MustParsePrefix("::1/128"),
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"forwarded for", "127.0.0.1:40000", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"client supplied prefix ignored", "127.0.0.1:40000", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5"}, "203.0.113.5"},
		{"trusted hops skipped", "127.0.0.1:40000", map[string]string{"X-Forwarded-For": "203.0.113.5, 127.0.0.1"}, "203.0.113.5"},
		{"real ip", "[::1]:40000", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "198.51.100.7"},
		{"forwarded wins", "127.0.0.1:40000", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.7"}, "203.0.113.5"},
		{"garbage header", "127.0.0.1:40000", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1:40000"},
		{"untrusted peer", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.7"}, "192.0.2.1:1234"},
		{"no headers", "127.0.0.1:40000", nil, "127.0.0.1:40000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIPMiddleware(loopbackProxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRotatingForwardedForIsStillLimited(t *testing.T) {
	rl := NewRateLimiter()
	h := RealIPMiddleware(loopbackProxies)(rl.Handler(okHandler))

	ok, limited := 0, 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/prices", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		} else {
			ok++
		}
	}

	// 1000 tokens at 50 per /prices call
	if ok > 21 {
		t.Errorf("Expected at most 21 allowed requests, got %d", ok)
	}
	if limited == 0 {
		t.Error("Expected the peer to be rate limited")
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if len(rl.clients) != 1 {
		t.Errorf("Expected a single bucket for the peer, got %d", len(rl.clients))
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 16, MaxHeaderSize: 64}
	h := RequestSizeMiddleware(cfg, testLogger())(okHandler)

	t.Run("small request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 17)))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Request body too large") {
			t.Errorf("Unexpected body: %s", rr.Body.String())
		}
	})

	t.Run("headers too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Padding", strings.Repeat("a", 100))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestHeaderFieldsTooLarge {
			t.Errorf("Expected 431, got %d", rr.Code)
		}
	})
}

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path string
		cost int64
	}{
		{"/metrics", 0},
		{"/health", 5},
		{"/prices", 50},
		{"/mapping", 50},
		{"/mapping/untranslated", 20},
		{"/prices/Red%20Potato", 10},
		{"/other", 20},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := getTokenCost(req); got != tt.cost {
			t.Errorf("%s: expected cost %d, got %d", tt.path, tt.cost, got)
		}
	}
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter()
	h := rl.Handler(okHandler)

	// 1000 tokens at 50 per /prices call
	allowed := 0
	limited := false
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodGet, "/prices", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			if rr.Header().Get("Retry-After") != "60" {
				t.Error("Expected Retry-After header")
			}
			break
		}
		allowed++
	}

	if !limited {
		t.Fatal("Expected the client to be rate limited")
	}
	if allowed < 20 {
		t.Errorf("Expected at least 20 allowed requests, got %d", allowed)
	}

	// Other clients keep their own bucket
	req := httptest.NewRequest(http.MethodGet, "/prices", nil)
	req.RemoteAddr = "192.0.2.11:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected a different client to pass, got %d", rr.Code)
	}
}

func TestRateLimiterMetricsFree(t *testing.T) {
	rl := NewRateLimiter()
	h := rl.Handler(okHandler)

	for i := 0; i < 2000; i++ {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "192.0.2.20:1"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d to /metrics was limited", i)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	rl.getBucket("192.0.2.30")
	drained := rl.getBucket("192.0.2.31")
	drained.TakeAvailable(500)

	removed := rl.Cleanup()
	if removed != 1 {
		t.Errorf("Expected 1 bucket removed, got %d", removed)
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.clients["192.0.2.31"]; !ok {
		t.Error("Expected drained bucket to be kept")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:8080"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Errorf("Expected host only, got %s", got)
	}
	req.RemoteAddr = "203.0.113.5"
	if got := clientIP(req); got != "203.0.113.5" {
		t.Errorf("Expected bare address, got %s", got)
	}
}
