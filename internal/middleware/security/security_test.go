package security

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'self' "+ChartJSOrigin) {
		t.Fatalf("CSP does not allow Chart.js: %q", csp)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("X-Frame-Options = %q", rec.Header().Get("X-Frame-Options"))
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestDetector_Inspect(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		userAgent string
		want      string
	}{
		{"dashboard", http.MethodGet, "/api/rides", "Mozilla/5.0", ""},
		{"chart png", http.MethodGet, "/charts/rides-by-category.png?width=800", "Mozilla/5.0", ""},
		{"dotenv probe", http.MethodGet, "/.env", "", "path"},
		{"traversal in query", http.MethodGet, "/?file=../../etc/passwd", "", "query"},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", "user_agent"},
		{"trace method", "TRACE", "/", "", "method"},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", maxURLLength), "", "url_length"},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			if got := d.Inspect(req); got != tt.want {
				t.Fatalf("Inspect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_MiddlewareLogsAndPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})
	m := metrics.New()

	called := false
	h := NewDetector().Middleware(logger, m)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))

	if !called {
		t.Fatal("suspicious requests must still reach the router")
	}
	if !strings.Contains(buf.String(), "Suspicious request") || !strings.Contains(buf.String(), "component=security") {
		t.Fatalf("warning not logged: %s", buf.String())
	}
	if got := testutil.ToFloat64(m.SuspiciousTotal.WithLabelValues("path")); got != 1 {
		t.Fatalf("suspicious counter = %v", got)
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"direct", "198.51.100.4:5555", "", "", "198.51.100.4"},
		{"untrusted peer ignores headers", "198.51.100.4:5555", "203.0.113.9", "", "198.51.100.4"},
		{"trusted proxy xff", "10.0.0.2:80", "203.0.113.9, 10.0.0.1", "", "203.0.113.9"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "203.0.113.10", "203.0.113.10"},
		{"trusted proxy garbage header", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"no port", "198.51.100.4", "", "", "198.51.100.4"},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Fatalf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:1"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ExtractClientIP() = %q", got)
	}
}
