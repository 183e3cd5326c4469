package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/utils"
)

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour, // no refill during a test
		TTL:            10 * time.Minute,
		Prefix:         "rl",
	}
}

func TestTokenBucketAllowsUntilExhausted(t *testing.T) {
	_, rdb := testRedis(t)

	e := echo.New()
	e.GET("/v1/protocols", okHandler, NewTokenBucket(testRateConfig(), rdb))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/protocols", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/protocols", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketFailsOpenWhenRedisDown(t *testing.T) {
	s, rdb := testRedis(t)
	s.Close()

	e := echo.New()
	e.GET("/v1/protocols", okHandler, NewTokenBucket(testRateConfig(), rdb))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/protocols", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketDisabledIsPassthrough(t *testing.T) {
	cfg := testRateConfig()
	cfg.Enabled = false

	e := echo.New()
	e.GET("/v1/protocols", okHandler, NewTokenBucket(cfg, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/protocols", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

// The limiter runs before JWT verification, so the doctor must come out
// of the bearer token itself for per-doctor buckets to exist at all.
func TestBuildRateKeyReadsBearerSubject(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 42, 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	req.Header.Set("X-Real-IP", "192.0.2.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/me")

	key := buildRateKey(testRateConfig(), c)
	assert.Equal(t, "rl:ip:192.0.2.1:doctor:42:route:GET /v1/me", key)
}

func TestBuildRateKeyAnonymousWithoutToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/protocols", nil)
	req.Header.Set("X-Real-IP", "192.0.2.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/protocols")

	key := buildRateKey(testRateConfig(), c)
	assert.Equal(t, "rl:ip:192.0.2.1:doctor:anon:route:GET /v1/protocols", key)
}

func TestBuildRateKeyIgnoresGarbageBearer(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	req.Header.Set("X-Real-IP", "192.0.2.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/me")

	key := buildRateKey(testRateConfig(), c)
	assert.Equal(t, "rl:ip:192.0.2.1:doctor:anon:route:GET /v1/me", key)
}

func TestBuildRateKeyPrefersContextDoctor(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("X-Real-IP", "192.0.2.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/me")
	c.Set("doctor_id", float64(7))

	key := buildRateKey(testRateConfig(), c)
	assert.Equal(t, "rl:ip:192.0.2.1:doctor:7:route:GET /v1/me", key)
}
