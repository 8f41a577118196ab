package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ChartJSOrigin serves the Chart.js bundle loaded by the dashboard page.
const ChartJSOrigin = "https://cdn.jsdelivr.net"

// Directive is one Content-Security-Policy entry.
type Directive struct {
	Name    string
	Sources []string
}

// HeadersConfig lists the response headers sent on every request. Empty
// values are omitted.
type HeadersConfig struct {
	CSP []Directive

	// HSTS is only sent on TLS connections; zero disables it.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool

	FrameOptions           string
	ReferrerPolicy         string
	PermissionsPolicy      string
	CrossOriginOpener      string
	CrossOriginResource    string
	DisableContentSniffing bool
}

// DefaultHeadersConfig fits the dashboard: scripts from the page and
// ChartJSOrigin, data and PNGs from the page itself.
func DefaultHeadersConfig() HeadersConfig {
	self := []string{"'self'"}
	return HeadersConfig{
		CSP: []Directive{
			{"default-src", self},
			{"script-src", []string{"'self'", ChartJSOrigin}},
			{"style-src", self},
			{"img-src", []string{"'self'", "data:", "blob:"}},
			{"connect-src", self},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", self},
			{"form-action", self},
		},
		HSTSMaxAge:             365 * 24 * time.Hour,
		HSTSIncludeSubdomains:  true,
		FrameOptions:           "DENY",
		ReferrerPolicy:         "strict-origin-when-cross-origin",
		PermissionsPolicy:      "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:      "same-origin",
		CrossOriginResource:    "same-origin",
		DisableContentSniffing: true,
	}
}

func (c HeadersConfig) policy() string {
	parts := make([]string, 0, len(c.CSP))
	for _, d := range c.CSP {
		parts = append(parts, strings.Join(append([]string{d.Name}, d.Sources...), " "))
	}
	return strings.Join(parts, "; ")
}

func (c HeadersConfig) hsts() string {
	if c.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(int(c.HSTSMaxAge/time.Second))
	if c.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// HeadersMiddleware sets a fixed header set computed once at construction.
type HeadersMiddleware struct {
	always http.Header
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{always: http.Header{}, hsts: cfg.hsts()}
	add := func(key, value string) {
		if value != "" {
			h.always.Set(key, value)
		}
	}
	if cfg.DisableContentSniffing {
		add("X-Content-Type-Options", "nosniff")
	}
	add("X-Frame-Options", cfg.FrameOptions)
	add("Content-Security-Policy", cfg.policy())
	add("Referrer-Policy", cfg.ReferrerPolicy)
	add("Permissions-Policy", cfg.PermissionsPolicy)
	add("Cross-Origin-Opener-Policy", cfg.CrossOriginOpener)
	add("Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range h.always {
			dst[k] = append([]string(nil), v...)
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets clients cache responses for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses that reflect the current dataset as uncacheable.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
