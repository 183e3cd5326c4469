package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/utils"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "handled")
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodOptions, "/v1/protocols", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, CORS()(okHandler)(c))

	// Preflights answer 200 with an empty body, not echo's default 204.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
	assert.Equal(t, "86400", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestCORSStampsOriginOnNormalRequests(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/protocols", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, CORS()(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handled", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, JWTAuth("secret")(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidToken(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 42, 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got interface{}
	inner := func(c echo.Context) error {
		got = c.Get("doctor_id")
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth("secret")(inner)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), got)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("issuer-secret", 42, 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, JWTAuth("verifier-secret")(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
