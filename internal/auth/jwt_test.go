package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidate(t *testing.T) {
	service := NewJWTService("test-secret")
	userID := uuid.New()

	token := sign(t, "test-secret", Claims{
		Email:        "user@example.com",
		Roles:        []string{"member"},
		Permissions:  []string{"community.create"},
		IsSuperadmin: false,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
	assert.Equal(t, []string{"member"}, identity.Roles)
	assert.Equal(t, []string{"community.create"}, identity.Permissions)
	assert.False(t, identity.IsSuperadmin)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	service := NewJWTService("test-secret")

	token := sign(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := service.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	service := NewJWTService("test-secret")

	token := sign(t, "other-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.New().String()},
	})

	_, err := service.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsNonUUIDSubject(t *testing.T) {
	service := NewJWTService("test-secret")

	token := sign(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
	})

	_, err := service.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	service := NewJWTService("test-secret")

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.New().String()},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	service := NewJWTService("test-secret")
	_, err := service.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
