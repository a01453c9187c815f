package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumkit/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authTestRouter(required bool) *gin.Engine {
	r := gin.New()
	mw := OptionalAuth()
	if required {
		mw = AuthRequired()
	}
	r.GET("/whoami", mw, func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		role, _ := ctx.Get(ContextRoleKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": id, "role": role})
	})
	return r
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.GenerateToken(42, "alice", "moderator", time.Hour)
	require.NoError(t, err)

	r := authTestRouter(true)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"role":"moderator"`)
}

func TestAuthRequiredRejectsMissingAndMalformed(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthServesAnonymously(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter(false)

	// No token: request goes through with no identity set.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":null`)

	// A garbage token is ignored, not rejected.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// A valid token upgrades the request.
	token, err := utils.GenerateToken(7, "bob", "user", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}
