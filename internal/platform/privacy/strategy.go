package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Strategy transforms a personal field value into a non-identifying one while
// preserving structural usefulness. The same (subject, field, value) input
// always yields the same output so repeated anonymization passes are
// idempotent and anonymized records remain joinable.
type Strategy interface {
	// Transform anonymizes one field value belonging to subject. The field
	// label scopes the pseudonym so e.g. an email and a display name of the
	// same user do not collide.
	Transform(subject, field, value string) string
	// SubjectRef returns the stable non-identifying reference kept for a
	// subject after deletion (used to preserve the audit trail).
	SubjectRef(subject string) string
	// Name identifies the strategy in configuration and audit detail.
	Name() string
}

// Pseudonymizer is the default Strategy. It derives deterministic pseudonyms
// with HMAC-SHA256 under a service-held key, truncated to 16 hex characters
// and prefixed "anon-". Without the key the mapping cannot be reversed or
// re-derived, which satisfies the pseudonymization bar of GDPR Art. 4(5).
//
// IP-shaped fields are truncated with AnonymizeIP instead, so anonymized
// records keep their coarse network origin for aggregate statistics.
type Pseudonymizer struct {
	key []byte
}

func NewPseudonymizer(key string) *Pseudonymizer {
	return &Pseudonymizer{key: []byte(key)}
}

func (p *Pseudonymizer) Name() string { return "pseudonymize" }

func (p *Pseudonymizer) Transform(subject, field, value string) string {
	if value == "" {
		return ""
	}
	if field == "source_ip" {
		return AnonymizeIP(value)
	}
	return p.tag(subject + "|" + field)
}

func (p *Pseudonymizer) SubjectRef(subject string) string {
	return p.tag(subject)
}

func (p *Pseudonymizer) tag(input string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(input))
	return fmt.Sprintf("anon-%s", hex.EncodeToString(mac.Sum(nil))[:16])
}

// ForName returns the configured strategy by name. Unknown names fall back to
// pseudonymization rather than failing open with raw PII.
func ForName(name, key string) Strategy {
	switch name {
	case "", "pseudonymize":
		return NewPseudonymizer(key)
	default:
		return NewPseudonymizer(key)
	}
}
