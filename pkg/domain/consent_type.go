package domain

import dErrors "sapphire/pkg/domain-errors"

// ConsentType identifies one category of data processing a user can
// independently allow or deny.
//
// Invariant: the value must be one of the supported consent types. Construct
// via ParseConsentType at trust boundaries to enforce the allowlist; direct
// casting bypasses validation.
type ConsentType string

const (
	ConsentDataLinking            ConsentType = "data_linking"
	ConsentAIMetadataEnhancement  ConsentType = "ai_metadata_enhancement"
	ConsentAIRecommendations      ConsentType = "ai_recommendations"
	ConsentCommunityContributions ConsentType = "community_contributions"
	ConsentGeneralDataProcessing  ConsentType = "general_data_processing"
)

// allConsentTypes is the single source of truth for the closed consent set.
// Status derivation enumerates this slice, never the stored records, so a user
// with no history still gets an answer for every type.
var allConsentTypes = []ConsentType{
	ConsentDataLinking,
	ConsentAIMetadataEnhancement,
	ConsentAIRecommendations,
	ConsentCommunityContributions,
	ConsentGeneralDataProcessing,
}

var validConsentTypes = map[ConsentType]bool{
	ConsentDataLinking:            true,
	ConsentAIMetadataEnhancement:  true,
	ConsentAIRecommendations:      true,
	ConsentCommunityContributions: true,
	ConsentGeneralDataProcessing:  true,
}

// AllConsentTypes returns the closed set in stable order.
func AllConsentTypes() []ConsentType {
	out := make([]ConsentType, len(allConsentTypes))
	copy(out, allConsentTypes)
	return out
}

// ParseConsentType constructs a ConsentType from external input.
//
// Errors: returns CodeInvalidConsentType when the value is empty or
// unsupported; no other errors are expected.
func ParseConsentType(s string) (ConsentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidConsentType, "consent type cannot be empty")
	}
	t := ConsentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidConsentType, "unknown consent type: "+s)
	}
	return t, nil
}

// IsValid checks if the consent type is one of the supported enum values.
func (t ConsentType) IsValid() bool {
	return validConsentTypes[t]
}

// String returns the string representation of the type.
func (t ConsentType) String() string {
	return string(t)
}
