package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"
)

// NewTokenBucket returns a distributed token-bucket limiter backed by
// Redis.  State lives in a Redis hash per (ip, doctor, route) key and is
// mutated atomically by a Lua script, so multiple API instances share
// one budget.  When Redis is down or the script misbehaves the request
// is let through: availability of the clinic tooling wins over strict
// limiting.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    limiterScript := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local refill_tokens = tonumber(ARGV[3])
        local interval_ms = tonumber(ARGV[4])
        local ttl_seconds = tonumber(ARGV[5])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 and refill_tokens > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + (intervals * refill_tokens))
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
    `)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            now := time.Now()

            args := []interface{}{
                now.UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            ctx := c.Request().Context()
            vals, err := limiterScript.Run(ctx, rdb, []string{key}, args...).Result()
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
                }
                return next(c)
            }

            allowed := false
            remaining := int64(0)
            retryMs := int64(0)

            if arr, ok := vals.([]interface{}); ok && len(arr) == 3 {
                if i, ok := arr[0].(int64); ok { allowed = (i == 1) } else { allowed = fmt.Sprint(arr[0]) == "1" }
                remaining = asInt64(arr[1])
                retryMs = asInt64(arr[2])
            } else {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] unexpected script result for key=%s: %#v", key, vals)
                }
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                if secs < 0 { secs = 0 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int32: return int64(t)
    case int: return int64(t)
    case float64: return int64(t)
    case float32: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

// buildRateKey keys the bucket on client IP, doctor identity and
// method+route.  The limiter sits in front of the JWT middleware, so
// c.Get("doctor_id") is not populated yet; the doctor comes from the
// bearer token's subject claim instead.  The claim is read without
// signature verification — it only partitions buckets, and JWTAuth
// still rejects forged tokens before any handler runs.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    doctor := "anon"
    if v := c.Get("doctor_id"); v != nil {
        doctor = fmt.Sprint(v)
    } else if sub := bearerSubject(c.Request().Header.Get("Authorization")); sub != "" {
        doctor = sub
    }
    route := c.Request().Method + " " + c.Path()
    return strings.Join([]string{cfg.Prefix, "ip", ip, "doctor", doctor, "route", route}, ":")
}

// bearerSubject extracts the sub claim from a Bearer JWT, or "" when
// the header is absent or unparseable.
func bearerSubject(auth string) string {
    if !strings.HasPrefix(auth, "Bearer ") {
        return ""
    }
    raw := strings.TrimPrefix(auth, "Bearer ")
    tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
    if err != nil {
        return ""
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return ""
    }
    sub, ok := claims["sub"]
    if !ok {
        return ""
    }
    return fmt.Sprint(sub)
}
