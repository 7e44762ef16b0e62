package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sapphire/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("valid UUID", func(t *testing.T) {
		raw := uuid.New().String()
		id, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
		assert.False(t, id.IsNil())
	})

	t.Run("empty string rejected", func(t *testing.T) {
		_, err := ParseUserID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("malformed rejected", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil UUID rejected", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestIDMarshalText(t *testing.T) {
	raw := uuid.New()
	text, err := UserID(raw).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, raw.String(), string(text))
}

func TestParseConsentType(t *testing.T) {
	t.Run("all supported types parse", func(t *testing.T) {
		for _, ct := range AllConsentTypes() {
			parsed, err := ParseConsentType(ct.String())
			require.NoError(t, err)
			assert.Equal(t, ct, parsed)
		}
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := ParseConsentType("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConsentType))
	})

	t.Run("unknown rejected", func(t *testing.T) {
		_, err := ParseConsentType("telepathy")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConsentType))
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := ParseConsentType("Data_Linking")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConsentType))
	})
}

func TestAllConsentTypesIsACopy(t *testing.T) {
	first := AllConsentTypes()
	first[0] = ConsentType("mutated")
	assert.Equal(t, ConsentDataLinking, AllConsentTypes()[0])
}
