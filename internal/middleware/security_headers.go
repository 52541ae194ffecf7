package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Production bool
	// ImageHost is the origin posters and backdrops are loaded from
	ImageHost string
}

// trailer embeds
const frameSources = "https://www.youtube.com https://www.youtube-nocookie.com"

// SecurityHeaders returns a middleware that adds security headers to all responses
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	csp := contentSecurityPolicy(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")

			// HSTS only over HTTPS
			if config.Production && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func contentSecurityPolicy(config SecurityHeadersConfig) string {
	images := "'self' data:"
	if config.ImageHost != "" {
		images += " " + config.ImageHost
	}

	if config.Production {
		return strings.Join([]string{
			"default-src 'self'",
			"script-src 'self'",
			"style-src 'self' 'unsafe-inline'",
			"img-src " + images,
			"font-src 'self'",
			"connect-src 'self'",
			"frame-src " + frameSources,
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		}, "; ")
	}

	// Vite dev server needs inline scripts and websockets for hot reload
	return strings.Join([]string{
		"default-src 'self' http: https: ws:",
		"script-src 'self' 'unsafe-inline' 'unsafe-eval' http: https:",
		"style-src 'self' 'unsafe-inline' http: https:",
		"img-src " + images + " http: https:",
		"font-src 'self' data: http: https:",
		"connect-src 'self' http: https: ws: wss:",
		"frame-src " + frameSources,
		"frame-ancestors 'self'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}
