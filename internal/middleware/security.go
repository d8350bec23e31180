// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects headers suited to a small JSON/text control surface on every
// response:
//
//   • Content-Security-Policy   –  nothing may load; responses are data only
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  no Referer leaves the surface
//   • Cache-Control             –  snapshots must never be cached by proxies
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; net/http freezes the header map
//   on the first Write, so setting them afterwards is a no-op.  Handlers may
//   still override a value before writing.
// • HSTS is left to the TLS-terminating proxy in front of the service.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		csp   = "default-src 'none'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "no-referrer"
		cache = "no-store"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Cache-Control", cache)

		next.ServeHTTP(w, r)
	})
}
