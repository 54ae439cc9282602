package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nexus-community/backend/pkg/response"
)

func newCORSRouter(allowedOrigins string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(allowedOrigins))
	router.GET("/communities", func(c *gin.Context) { response.OK(c, gin.H{}) })
	return router
}

func doRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/communities", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORSWildcard(t *testing.T) {
	router := newCORSRouter("*")
	rec := doRequest(router, http.MethodGet, "https://app.example.com")

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSEmptyListAllowsAll(t *testing.T) {
	router := newCORSRouter("")
	rec := doRequest(router, http.MethodGet, "https://app.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowlistEchoesOrigin(t *testing.T) {
	router := newCORSRouter("https://app.example.com, https://admin.example.com")
	rec := doRequest(router, http.MethodGet, "https://admin.example.com")

	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	router := newCORSRouter("https://app.example.com")
	rec := doRequest(router, http.MethodGet, "https://evil.example.com")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code, "request still served, just without CORS headers")
}

func TestCORSPreflight(t *testing.T) {
	router := newCORSRouter("*")
	rec := doRequest(router, http.MethodOptions, "https://app.example.com")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())
}
