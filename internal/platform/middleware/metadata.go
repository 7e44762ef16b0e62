package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"sapphire/pkg/requestcontext"
)

// MaxXFFHeaderLength is the maximum allowed length for X-Forwarded-For header
// to prevent header injection attacks.
const MaxXFFHeaderLength = 500

// MetadataConfig holds configuration for the metadata middleware.
type MetadataConfig struct {
	// TrustedProxies is a list of IP prefixes (CIDR notation) that are trusted
	// to set X-Forwarded-For headers. If empty, XFF is never trusted.
	TrustedProxies []netip.Prefix
}

// Metadata extracts client IP address and User-Agent from the request and adds
// them to the context. Consent records carry both for the audit trail.
type Metadata struct {
	config MetadataConfig
}

// NewMetadata creates the metadata middleware. A nil trusted-proxy list means
// forwarding headers are never trusted (secure by default).
func NewMetadata(cfg MetadataConfig) *Metadata {
	return &Metadata{config: cfg}
}

// ParseTrustedProxies parses CIDR strings, skipping entries that do not parse.
func ParseTrustedProxies(cidrs []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

func (m *Metadata) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.extractClientIP(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractClientIP extracts the client IP with trusted proxy validation.
func (m *Metadata) extractClientIP(r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := r.Header.Get("X-Real-IP"); xri != "" && m.isTrustedProxy(remoteIP) {
			if len(xri) <= MaxXFFHeaderLength {
				return strings.TrimSpace(xri)
			}
		}
		return remoteIP
	}

	// XFF header present - only trust if request came from trusted proxy
	if !m.isTrustedProxy(remoteIP) {
		return remoteIP
	}
	if len(xff) > MaxXFFHeaderLength {
		return remoteIP
	}

	// First IP in the XFF chain is the original client.
	var clientIP string
	if before, _, ok := strings.Cut(xff, ","); ok {
		clientIP = strings.TrimSpace(before)
	} else {
		clientIP = strings.TrimSpace(xff)
	}

	if _, err := netip.ParseAddr(clientIP); err != nil {
		return remoteIP
	}
	return clientIP
}

func (m *Metadata) isTrustedProxy(ip string) bool {
	if len(m.config.TrustedProxies) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}

	// IPv6 with brackets: [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]:"); idx != -1 {
			return remoteAddr[1:idx]
		}
		return strings.Trim(strings.Split(remoteAddr, "]:")[0], "[]")
	}

	// IPv4: 127.0.0.1:port
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}
	return remoteAddr
}
