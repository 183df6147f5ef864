package api

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginWildcard disables the origin check for routes explicitly marked
// public, such as registration and widget delivery.
const OriginWildcard = "*"

// originAllowed decides whether a cross-site request may proceed. Requests
// carrying neither Origin nor Referer are admitted: server-to-server calls
// from the WordPress plugin supply no browser origin, and token possession
// is the real authorization boundary there. When a header is present its
// hostname must match the allow-listed one; malformed values fail closed.
func originAllowed(origin, referer, allowedHost string) bool {
	if allowedHost == OriginWildcard {
		return true
	}
	if origin == "" && referer == "" {
		return true
	}
	for _, raw := range []string{origin, referer} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue // malformed header does not vouch for anything
		}
		if strings.EqualFold(u.Hostname(), allowedHost) {
			return true
		}
	}
	return false
}

// requestOrigin pulls the browser-supplied origin headers off a request.
func requestOrigin(r *http.Request) (origin, referer string) {
	return r.Header.Get("Origin"), r.Header.Get("Referer")
}
