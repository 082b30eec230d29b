package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/godaddy/spree-ccavenue-api/utils"
)

func TestRequestIDMiddleware_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(utils.RequestIDKey).(string)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}
}

func TestRequestIDMiddleware_HonorsInbound(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "upstream-42" {
		t.Fatalf("expected inbound request id to survive, got %q", got)
	}
}

func TestMaxBodyMiddleware_RejectsOversizedBody(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "16")
	var readErr error
	h := MaxBodyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		_, readErr = r.Body.Read(buf)
	}))
	req := httptest.NewRequest("POST", "/api/checkout/callback", strings.NewReader(strings.Repeat("x", 64)))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Fatal("expected read past the body cap to fail")
	}
}

func TestSecurityHeadersMiddleware_SetsHardeningHeaders(t *testing.T) {
	h := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
}

func TestRecoveryMiddleware_Returns500OnPanic(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/checkout/callback", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
