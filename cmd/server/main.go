package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Load variables from a local .env file
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"   // Internal config loader
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/database" // MySQL connection pool
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/handler"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/middleware"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/queue"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/router" // Internal router setup
)

func main() {
	// Load .env if present; in production the variables come from the
	// environment and the file is simply absent.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories share the single pooled *sql.DB.
	doctors := repository.NewDoctorRepo(db)
	tokens := repository.NewTokenRepo(db)
	norms := repository.NewNormRepo(db)
	normTables := repository.NewNormTableRepo(db)
	templates := repository.NewTemplateRepo(db)
	input := repository.NewInputSettingsRepo(db)
	clinic := repository.NewClinicSettingsRepo(db)
	protocols := repository.NewProtocolRepo(db)

	authH := handler.NewAuthHandler(cfg, doctors, tokens)
	settingsH := handler.NewSettingsHandler(norms, normTables, templates, input, clinic)
	protocolH := handler.NewProtocolHandler(protocols)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())

	// Redis backs both the token-bucket rate limiter and the read cache.
	// A nil client disables both middlewares rather than failing startup.
	// The cache is NOT registered globally: cached bytes carry no caller
	// identity, so it may only ever sit on routes that serve the same
	// response to everyone.  RegisterProtocols attaches it to the public
	// read routes and nowhere else.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e) // Health check
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterSettings(e, settingsH, cfg.JWTSecret)
	router.RegisterProtocols(e, protocolH, &cfg, cacheMW)

	// The audit consumer drains protocol events from RabbitMQ in the
	// background and reconnects on its own; it must not block startup.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
