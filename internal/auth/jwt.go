package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified caller identity extracted from a bearer token.
// It is produced once per request and immutable for the request's lifetime.
// Roles and Permissions are the claims declared by the auth service; they
// only apply outside a community scope; inside a community the resolver
// derives permissions from the membership instead.
type Identity struct {
	UserID       uuid.UUID
	Email        string
	Roles        []string
	Permissions  []string
	IsSuperadmin bool
}

// Claims holds the JWT claims issued by the external auth service.
type Claims struct {
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
	IsSuperadmin bool     `json:"is_superadmin"`
	jwt.RegisteredClaims
}

// JWTService validates bearer tokens. Tokens are issued elsewhere; this
// service never signs.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a JWT validation service.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// Validate parses and verifies a token, returning the caller identity.
func (s *JWTService) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:       userID,
		Email:        claims.Email,
		Roles:        claims.Roles,
		Permissions:  claims.Permissions,
		IsSuperadmin: claims.IsSuperadmin,
	}, nil
}
