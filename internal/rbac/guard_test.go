package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/middleware"
)

func signToken(t *testing.T, secret string, userID uuid.UUID, perms []string) string {
	t.Helper()
	claims := auth.Claims{
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newGuardedRouter(source MembershipSource, mode Mode, required ...Permission) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	resolver := NewResolver(source, nil)
	jwtService := auth.NewJWTService("guard-test-secret")

	handlerRan := false
	router := gin.New()
	router.Use(middleware.JWT(jwtService))
	router.DELETE("/communities/:id", Require(resolver, mode, required...), func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusOK)
	})
	return router, &handlerRan
}

func TestGuardDeniesBeforeHandlerRuns(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Roles: []RoleGrant{{Name: "member", Permissions: []string{"community.view"}}},
	}}
	router, handlerRan := newGuardedRouter(source, ModeAll, PermCommunityDelete)

	req := httptest.NewRequest(http.MethodDelete, "/communities/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "guard-test-secret", uuid.New(), nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *handlerRan, "denied request must not reach the handler")
	assert.Contains(t, rec.Body.String(), "community.delete")
}

func TestGuardAllowsOwner(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{IsOwner: true}}
	router, handlerRan := newGuardedRouter(source, ModeAll, PermCommunityDelete)

	req := httptest.NewRequest(http.MethodDelete, "/communities/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "guard-test-secret", uuid.New(), nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *handlerRan)
}

func TestGuardWithoutCommunityParamUsesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resolver := NewResolver(&fakeMemberships{}, nil)
	jwtService := auth.NewJWTService("guard-test-secret")

	router := gin.New()
	router.Use(middleware.JWT(jwtService))
	router.POST("/communities", Require(resolver, ModeAll, PermCommunityCreate), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/communities", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "guard-test-secret", uuid.New(), []string{"community.create"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/communities", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "guard-test-secret", uuid.New(), nil))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
