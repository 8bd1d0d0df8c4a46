package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is the caller identity used when no address can be derived.
// Degrading fidelity beats failing the request.
const Unknown = "unknown"

// FromRequest derives the caller identity for rate-limit bucketing:
// first X-Forwarded-For hop, then X-Real-IP, then the connection address.
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return Unknown
}
