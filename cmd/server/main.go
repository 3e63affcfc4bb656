package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/filmila/filmila/internal/config"
	"github.com/filmila/filmila/internal/database"
	"github.com/filmila/filmila/internal/handler"
	"github.com/filmila/filmila/internal/middleware"
	"github.com/filmila/filmila/internal/payment"
	"github.com/filmila/filmila/internal/queue"
	"github.com/filmila/filmila/internal/repository"
	"github.com/filmila/filmila/internal/router"
	"github.com/filmila/filmila/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.OpenWithRetry(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, 5)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(startCtx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	store, err := storage.NewMediaStore(startCtx, cfg)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	processor := payment.NewStripeProcessor(cfg.StripeSecret)

	// Redis is optional: nil disables the response cache and rate limiter.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	films := repository.NewFilmRepo(db)
	purchases := repository.NewPurchaseRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	catalogH := handler.NewCatalogHandler(films, store)
	commerceH := handler.NewCommerceHandler(films, purchases, store, processor)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	// Route-level so bearer routes rate limit per authenticated user;
	// the router mounts it after JWTAuth.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limit)
	router.RegisterCatalog(e, catalogH, cfg.JWTSecret, cache, limit)
	router.RegisterCommerce(e, commerceH, cfg.JWTSecret, limit)

	// Consume purchase.completed events in the background; the consumer
	// runs its own reconnect loop.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Block until asked to stop, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := e.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
