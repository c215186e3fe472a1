package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/moviesvault/movies-vault/internal/config"
	"github.com/moviesvault/movies-vault/internal/database"
	"github.com/moviesvault/movies-vault/internal/handler"
	"github.com/moviesvault/movies-vault/internal/middleware"
	"github.com/moviesvault/movies-vault/internal/queue"
	"github.com/moviesvault/movies-vault/internal/repository"
	"github.com/moviesvault/movies-vault/internal/router"
	"github.com/moviesvault/movies-vault/internal/tmdb"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Redis backs the TMDB response cache and the rate limiter; nil means
	// both degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	prefs := repository.NewPreferencesRepo(db)
	blacklist := repository.NewBlacklistRepo(db)
	watchlist := repository.NewWatchlistRepo(db)
	catalog := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAPIKey)

	authH := handler.NewAuthHandler(cfg, users, blacklist)
	prefsH := handler.NewPreferencesHandler(prefs)
	adminH := handler.NewAdminHandler(blacklist)
	moviesH := handler.NewMoviesHandler(catalog)
	watchH := handler.NewWatchlistHandler(watchlist, catalog)
	healthH := handler.NewHealthHandler(db, rdb)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterHealth(e, healthH)
	router.RegisterAuth(e, authH, prefsH, adminH, blacklist, users, cfg.JWTSecret)
	router.RegisterMovies(e, moviesH, config.LoadCacheConfig(), rdb)
	router.RegisterWatchlist(e, watchH, blacklist, users, cfg.JWTSecret)

	// Background consumer drains user.activity into logs/activity.log and
	// reconnects on its own; it never stops the server.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
