package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "unit-test-secret"
	issuer = "opschat-test"
)

func TestVerifyRoundTrip(t *testing.T) {
	svc := NewAuthService(secret, issuer)

	token, err := IssueToken(secret, issuer, "user-42", time.Minute)
	require.NoError(t, err)

	userID, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewAuthService(secret, issuer)

	_, err := svc.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(secret, issuer)

	token, err := IssueToken("other-secret", issuer, "user-42", time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	svc := NewAuthService(secret, issuer)

	token, err := IssueToken(secret, "somebody-else", "user-42", time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(secret, issuer)

	token, err := IssueToken(secret, issuer, "user-42", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
