package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sapphire/pkg/requestcontext"
)

func captureMetadata(m *Metadata, req *http.Request) (ip, ua string) {
	handler := m.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return ip, ua
}

func TestMetadataUsesRemoteAddr(t *testing.T) {
	m := NewMetadata(MetadataConfig{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("User-Agent", "curl/8.0")

	ip, ua := captureMetadata(m, req)
	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "curl/8.0", ua)
}

func TestMetadataIgnoresXFFFromUntrustedPeer(t *testing.T) {
	m := NewMetadata(MetadataConfig{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	ip, _ := captureMetadata(m, req)
	assert.Equal(t, "203.0.113.7", ip, "spoofed forwarding headers must not be trusted")
}

func TestMetadataHonorsXFFFromTrustedProxy(t *testing.T) {
	m := NewMetadata(MetadataConfig{
		TrustedProxies: ParseTrustedProxies([]string{"10.0.0.0/8"}),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.1.2.3")

	ip, _ := captureMetadata(m, req)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestMetadataRejectsGarbageXFF(t *testing.T) {
	m := NewMetadata(MetadataConfig{
		TrustedProxies: ParseTrustedProxies([]string{"10.0.0.0/8"}),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "not-an-ip")

	ip, _ := captureMetadata(m, req)
	assert.Equal(t, "10.1.2.3", ip)
}

func TestMetadataIPv6RemoteAddr(t *testing.T) {
	m := NewMetadata(MetadataConfig{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"

	ip, _ := captureMetadata(m, req)
	assert.Equal(t, "2001:db8::1", ip)
}

func TestParseTrustedProxiesSkipsInvalid(t *testing.T) {
	prefixes := ParseTrustedProxies([]string{"10.0.0.0/8", "garbage", " 192.0.2.0/24 "})
	assert.Len(t, prefixes, 2)
}
