package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/models"
	"github.com/noah-isme/sma-routine-api/internal/service"
)

func issueToken(t *testing.T, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.Use(JWT(auth))
	r.GET("/routines", RequireRoles(models.RoleAdmin, models.RolePlanner, models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/routines", RequireRoles(models.RoleAdmin, models.RolePlanner), func(c *gin.Context) {
		claims, _ := c.Get(ContextUserKey)
		c.String(http.StatusCreated, claims.(*models.JWTClaims).UserID)
	})
	return r
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newGuardedRouter()

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/routines", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestRequireRoles(t *testing.T) {
	r := newGuardedRouter()

	cases := []struct {
		method string
		role   models.UserRole
		status int
	}{
		{http.MethodGet, models.RoleTeacher, http.StatusOK},
		{http.MethodPost, models.RoleTeacher, http.StatusForbidden},
		{http.MethodPost, models.RolePlanner, http.StatusCreated},
		{http.MethodPost, models.RoleSuperAdmin, http.StatusCreated},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(tc.method, "/routines", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, tc.role))
		r.ServeHTTP(w, req)
		require.Equal(t, tc.status, w.Code, "%s as %s", tc.method, tc.role)
		if tc.status == http.StatusCreated {
			assert.Equal(t, "user-1", w.Body.String())
		}
	}
}
