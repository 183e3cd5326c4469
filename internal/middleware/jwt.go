package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject claim into the request context.  The
// provided secret must match the one used when issuing tokens.  This
// middleware wraps protected routes so that handlers can access the
// authenticated doctor via `c.Get("doctor_id")`.
//
// The previous generation of this API accepted the doctor's plaintext
// email in an X-Auth-Token header and looked it up per request.  That
// scheme is gone: only signed HS256 tokens are accepted here.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse the token with the HS256 secret.  The callback checks
            // the signing method so tokens signed with another algorithm
            // are rejected outright.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // Store the subject (doctor ID) in the context.  Handlers read
            // it via c.Get(); the numeric type assertion is left to them.
            c.Set("doctor_id", claims["sub"])
            return next(c)
        }
    }
}
