package auth

import (
	"testing"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier() *Verifier {
	return NewVerifier(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "crm",
	})
}

func TestVerifier_SignAndVerify(t *testing.T) {
	v := newTestVerifier()

	token, err := v.Sign("user-42", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Actor())
	assert.Equal(t, "crm", claims.Issuer)
}

func TestVerifier_Rejects(t *testing.T) {
	v := newTestVerifier()

	expired, err := v.Sign("user-42", -time.Minute)
	require.NoError(t, err)

	otherIssuer, err := NewVerifier(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere"}).Sign("user-42", time.Hour)
	require.NoError(t, err)

	otherSecret, err := NewVerifier(config.JWTConfig{Secret: "a-completely-different-secret-key", Issuer: "crm"}).Sign("user-42", time.Hour)
	require.NoError(t, err)

	noSubject, err := v.Sign("", time.Hour)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42", Issuer: "crm"},
	}).SignedString([]byte("test-secret-key-at-least-32-chars"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "expired", token: expired, want: ErrExpiredToken},
		{name: "wrong issuer", token: otherIssuer, want: ErrInvalidToken},
		{name: "wrong secret", token: otherSecret, want: ErrInvalidToken},
		{name: "missing subject", token: noSubject, want: ErrMissingSubject},
		{name: "other algorithm", token: hs512, want: ErrInvalidToken},
		{name: "garbage", token: "not.a.token", want: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_UserIDFallback(t *testing.T) {
	v := newTestVerifier()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "crm"},
		UserID:           "user-7",
	}).SignedString([]byte("test-secret-key-at-least-32-chars"))
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Actor())
}

func TestVerifier_NoSecret(t *testing.T) {
	v := NewVerifier(config.JWTConfig{})

	_, err := v.Verify("anything")
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = v.Sign("user", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}
