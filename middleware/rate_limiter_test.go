package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	// trustedCIDR contains the remote IP
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedCIDR(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "10.0.3.4:443"
	req.Header.Set("X-Real-IP", "203.0.113.9")
	ip := clientIPGeneric(req, []string{"10.0.0.0/8"})
	if ip != "203.0.113.9" {
		t.Fatalf("expected X-Real-IP value behind trusted CIDR, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPRateLimiter_BlocksOverLimit(t *testing.T) {
	l := NewIPRateLimiter(3, time.Minute)
	h := l.Middleware(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("POST", "http://example.local/api/admin/login", nil)
		req.RemoteAddr = "203.0.113.20:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exceeding limit, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}

	// a different IP is unaffected
	req := httptest.NewRequest("POST", "http://example.local/api/admin/login", nil)
	req.RemoteAddr = "203.0.113.21:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", rec.Code)
	}
}

func TestCallbackLimiter_WhitelistBypasses(t *testing.T) {
	l := NewCallbackLimiter(1, time.Minute, []string{"203.0.113.30"})
	h := l.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "http://example.local/api/checkout/callback", nil)
		req.RemoteAddr = "203.0.113.30:9000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("whitelisted IP must never be limited, got %d on call %d", rec.Code, i+1)
		}
	}

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "http://example.local/api/checkout/callback", nil)
		req.RemoteAddr = "203.0.113.31:9000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for non-whitelisted IP over limit, got %d", last.Code)
	}
}
