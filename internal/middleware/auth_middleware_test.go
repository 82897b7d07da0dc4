package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietbus/ticketing-backend/pkg/jwt"
)

const testSecret = "test-secret-key-for-testing-purposes"

func newAuthRouter(jwtService *jwt.Service, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chain := append([]gin.HandlerFunc{AuthMiddleware(jwtService)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		userCtx, _ := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userCtx.UserID})
	})

	router.GET("/protected", chain...)
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewService(testSecret, time.Hour)
	router := newAuthRouter(jwtService)

	t.Run("Valid Token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "a@example.com", []string{"passenger"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing Header", func(t *testing.T) {
		w := doRequest(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
	})

	t.Run("Malformed Header", func(t *testing.T) {
		w := doRequest(router, "NotBearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
	})

	t.Run("Empty Token", func(t *testing.T) {
		w := doRequest(router, "Bearer ")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
	})

	t.Run("Invalid Token", func(t *testing.T) {
		w := doRequest(router, "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("Expired Token", func(t *testing.T) {
		expiredService := jwt.NewService(testSecret, -time.Minute)
		token, err := expiredService.GenerateToken(uuid.New(), "a@example.com", []string{"passenger"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		otherService := jwt.NewService("another-secret", time.Hour)
		token, err := otherService.GenerateToken(uuid.New(), "a@example.com", []string{"passenger"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := jwt.NewService(testSecret, time.Hour)
	router := newAuthRouter(jwtService, RequireRole("operator", "admin"))

	t.Run("Has Required Role", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "op@example.com", []string{"operator"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Has One Of Several Roles", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "admin@example.com", []string{"passenger", "admin"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing Role", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "a@example.com", []string{"passenger"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_ROLE")
	})

	t.Run("No Roles At All", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "a@example.com", nil)
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := UserContext{UserID: uuid.New(), Email: "a@example.com", Roles: []string{"passenger"}}
		c.Set(UserContextKey, want)

		got, exists := GetUserContext(c)
		assert.True(t, exists)
		assert.Equal(t, want, got)
	})

	t.Run("Absent", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		_, exists := GetUserContext(c)
		assert.False(t, exists)
	})
}
