package export

import (
	"time"

	"sapphire/internal/consent"
	"sapphire/internal/userdata"
)

// Bundle is the complete point-in-time snapshot of a user's personal data,
// returned for a data-portability request. It is built fresh per request,
// never cached: data may change between requests.
//
// The document is field-complete: every category is present even when empty,
// so a user can diff repeated exports. Only GeneratedAt is expected to differ
// between two exports with no intervening writes.
type Bundle struct {
	Profile        userdata.Profile        `json:"profile"`
	ConsentHistory []consent.Record        `json:"consentHistory"`
	Datasets       []userdata.Dataset      `json:"datasets"`
	SharingGrants  []userdata.SharingGrant `json:"sharingGrants"`
	DIDDocuments   []userdata.DIDDocument  `json:"didDocuments"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}
