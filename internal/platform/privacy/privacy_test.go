package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPseudonymizerDeterminism(t *testing.T) {
	p := NewPseudonymizer("test-key")

	first := p.Transform("user-1", "email", "alice@example.org")
	second := p.Transform("user-1", "email", "alice@example.org")
	assert.Equal(t, first, second, "same input must always yield the same pseudonym")
	assert.True(t, strings.HasPrefix(first, "anon-"))
	assert.Len(t, first, len("anon-")+16)
}

func TestPseudonymizerFieldScoping(t *testing.T) {
	p := NewPseudonymizer("test-key")

	email := p.Transform("user-1", "email", "alice@example.org")
	name := p.Transform("user-1", "display_name", "alice")
	assert.NotEqual(t, email, name, "different fields of one subject must not collide")

	otherUser := p.Transform("user-2", "email", "alice@example.org")
	assert.NotEqual(t, email, otherUser, "different subjects must not collide")
}

func TestPseudonymizerKeyDependence(t *testing.T) {
	a := NewPseudonymizer("key-a").Transform("user-1", "email", "alice@example.org")
	b := NewPseudonymizer("key-b").Transform("user-1", "email", "alice@example.org")
	assert.NotEqual(t, a, b)
}

func TestPseudonymizerEmptyValue(t *testing.T) {
	p := NewPseudonymizer("test-key")
	assert.Empty(t, p.Transform("user-1", "email", ""))
}

func TestPseudonymizerIPField(t *testing.T) {
	p := NewPseudonymizer("test-key")
	assert.Equal(t, AnonymizeIP("203.0.113.7"), p.Transform("user-1", "source_ip", "203.0.113.7"))
}

func TestSubjectRef(t *testing.T) {
	p := NewPseudonymizer("test-key")
	ref := p.SubjectRef("user-1")
	assert.True(t, strings.HasPrefix(ref, "anon-"))
	assert.Equal(t, ref, p.SubjectRef("user-1"))
	assert.NotEqual(t, ref, p.SubjectRef("user-2"))
}

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"IPv4 truncated to /24", "203.0.113.7", "203.0.113.0"},
		{"IPv4 already zeroed", "10.1.2.0", "10.1.2.0"},
		{"IPv6 truncated to /48", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"unparseable marked invalid", "not-an-ip", "invalid"},
		{"empty marked unknown", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}

func TestForName(t *testing.T) {
	assert.Equal(t, "pseudonymize", ForName("", "k").Name())
	assert.Equal(t, "pseudonymize", ForName("pseudonymize", "k").Name())
	// Unknown strategies fall back rather than failing open with raw PII.
	assert.Equal(t, "pseudonymize", ForName("plaintext", "k").Name())
}
