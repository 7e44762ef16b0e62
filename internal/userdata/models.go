// Package userdata defines the personal-data collaborator repositories the
// privacy engine reads from and cascades deletion into. The owning subsystems
// (profile CRUD, dataset upload, sharing, DID wallet) are outside this engine;
// only the narrow interfaces here are depended on.
package userdata

import (
	"encoding/json"
	"time"

	"sapphire/pkg/domain"
)

// Profile is the user's account record.
type Profile struct {
	UserID        domain.UserID `json:"userId"`
	Email         string        `json:"email"`
	DisplayName   string        `json:"displayName"`
	WalletAddress string        `json:"walletAddress"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Dataset is a research dataset owned by a user, mirrored to Dataverse.
type Dataset struct {
	ID           domain.DatasetID `json:"id"`
	OwnerID      domain.UserID    `json:"ownerId"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	DataverseDOI string           `json:"dataverseDoi"`
	ContactEmail string           `json:"contactEmail"`
	Tags         []string         `json:"tags"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// SharingGrant lets a grantee DID access one of the owner's datasets.
type SharingGrant struct {
	ID         domain.GrantID   `json:"id"`
	DatasetID  domain.DatasetID `json:"datasetId"`
	OwnerID    domain.UserID    `json:"ownerId"`
	GranteeDID string           `json:"granteeDid"`
	Scope      string           `json:"scope"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// DIDDocument is a decentralized identifier document anchored to the user.
type DIDDocument struct {
	DID       string          `json:"did"`
	OwnerID   domain.UserID   `json:"ownerId"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}
