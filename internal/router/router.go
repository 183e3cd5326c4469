package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/handler"    // import the handlers that implement business logic
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected account endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Group under /v1/auth for operations that do not require an existing
	// session (register, login, refresh).  Each of these handlers is
	// responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle doctor registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle doctor login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens.  This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout does not require JWT authentication: the handler accepts a JSON
	// body containing a `refresh_token` and invalidates that token.
	g.POST("/logout", a.Logout)

	// Group for routes that require a valid access token.  All handlers
	// registered on this group execute the JWTAuth middleware first.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated doctor's profile.
	auth.GET("/me", a.Me)
	// Partial profile update (full name, specialization).
	auth.PUT("/me", a.UpdateMe)
	// Password change lives under /v1/auth with the other credential
	// operations but still requires an access token; it revokes every
	// active session for the doctor.
	auth.POST("/auth/change-password", a.ChangePassword)
}

// RegisterSettings registers the per-doctor settings endpoints.  Every
// route requires a valid access token: settings are always scoped to
// the authenticated doctor.
func RegisterSettings(e *echo.Echo, s *handler.SettingsHandler, jwtSecret string) {
	g := e.Group("/v1/settings")
	g.Use(middleware.JWTAuth(jwtSecret))

	// Individual norm ranges, optionally filtered by ?study_type=.
	g.GET("/norms", s.GetNorms)
	g.POST("/norms", s.SaveNorm)
	// Age/weight/height-range norm tables.
	g.GET("/norm-tables", s.GetNormTables)
	g.POST("/norm-tables", s.SaveNormTable)
	// Conclusion templates with condition lists and priorities.
	g.GET("/templates", s.GetTemplates)
	g.POST("/templates", s.SaveTemplate)
	g.PUT("/templates/:id", s.UpdateTemplate)
	// Field ordering and visibility for the protocol entry form.  These
	// two resources are singletons per doctor, so saving is a PUT.
	g.GET("/input", s.GetInputSettings)
	g.PUT("/input", s.SaveInputSettings)
	// Clinic letterhead details printed on reports.
	g.GET("/clinic", s.GetClinicSettings)
	g.PUT("/clinic", s.SaveClinicSettings)
	// Uniform delete for the list-shaped resources (norms, norm-tables,
	// templates); input and clinic settings are singletons and only
	// ever overwritten.
	g.DELETE("/:resource/:id", s.Delete)
}

// RegisterProtocols registers the protocol endpoints.  Mutations always
// require a valid access token.  Reads are public only when the
// deployment opts in via PUBLIC_PROTOCOL_READ; otherwise they sit
// behind the same JWT middleware so that listings are scoped to the
// authenticated doctor.
//
// The response cache middleware attaches ONLY to the public read
// routes.  Its keys carry no caller identity, so putting it anywhere
// near an authenticated route would replay one doctor's rows to the
// next caller of the same path.  Authenticated reads always hit the
// database.
func RegisterProtocols(e *echo.Echo, p *handler.ProtocolHandler, cfg *config.Config, cache echo.MiddlewareFunc) {
	auth := e.Group("/v1/protocols")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.POST("", p.Create)
	auth.PUT("/:id", p.Update)
	auth.DELETE("/:id", p.Delete)

	if cfg.PublicProtocolRead {
		// Read-only access for report viewers without an account.
		if cache == nil {
			cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		e.GET("/v1/protocols", p.List, cache)
		e.GET("/v1/protocols/:id", p.Get, cache)
	} else {
		auth.GET("", p.List)
		auth.GET("/:id", p.Get)
	}
}
