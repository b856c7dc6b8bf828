package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking-sync/internal/utils"
)

func protected(secret string, roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1/admin", JWTAuth(secret), RequireRole(roles...))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(ContextUserID).(string))
	})
	return e
}

func get(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/whoami", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	admin, err := utils.NewAccessToken("jwt-secret", "admin@example.com", utils.RoleAdmin, 5)
	require.NoError(t, err)
	guest, err := utils.NewAccessToken("jwt-secret", "guest@example.com", "GUEST", 5)
	require.NoError(t, err)

	e := protected("jwt-secret", utils.RoleAdmin)

	rec := get(e, "Bearer "+admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@example.com", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "Token "+admin.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(protected("other", utils.RoleAdmin), "Bearer "+admin.Token).Code)

	rec = get(e, "Bearer "+guest.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}
