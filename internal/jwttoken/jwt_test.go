package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sapphire/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "sapphire")
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "sapphire", claims.Issuer)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewService("test-signing-key", "sapphire")

	token, err := svc.GenerateAccessToken(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongKeyRejected(t *testing.T) {
	issuer := NewService("key-a", "sapphire")
	verifier := NewService("key-b", "sapphire")

	token, err := issuer.GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := NewService("test-signing-key", "sapphire")
	_, err := svc.ValidateToken("not.a.jwt")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestAdapterExposesUserID(t *testing.T) {
	svc := NewService("test-signing-key", "sapphire")
	userID := uuid.New()
	token, err := svc.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	claims, err := NewServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}
