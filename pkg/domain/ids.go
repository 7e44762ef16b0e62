// Package domain provides type-safe identifiers and closed enumerations so
// callers cannot mix up IDs or invent consent categories at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "sapphire/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a UserID where a DatasetID is expected.
type (
	UserID    uuid.UUID
	DatasetID uuid.UUID
	GrantID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseDatasetID(s string) (DatasetID, error) {
	id, err := parseUUID(s, "dataset ID")
	return DatasetID(id), err
}

func ParseGrantID(s string) (GrantID, error) {
	id, err := parseUUID(s, "grant ID")
	return GrantID(id), err
}

// String methods - for logging and persistence keys.

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id DatasetID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string   { return uuid.UUID(id).String() }

// MarshalText methods - defined types do not inherit uuid.UUID's, and the
// export bundle must serialize IDs as canonical UUID strings.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id DatasetID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id GrantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DatasetID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are rejected here:
// every identifier handled by this engine refers to a concrete record, and a
// nil user ID reaching a store would silently match nothing.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
