package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/moviesvault/movies-vault/internal/config"
	"github.com/moviesvault/movies-vault/internal/handler"
	"github.com/moviesvault/movies-vault/internal/middleware"
)

// RegisterRoutes registers routes that do not depend on any handler state:
// currently the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterHealth registers the detailed component-status page.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/v1/health", h.Detailed)
}

// RegisterAuth wires all authentication routes. Unauthenticated operations
// (register, login, refresh, logout) live under /v1/auth; profile and
// password endpoints require a valid access token, which JWTAuth validates
// against the blacklist and resolves to a live account. The blacklist
// purge endpoint additionally requires the staff flag.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.PreferencesHandler, adm *handler.AdminHandler,
	blacklist middleware.TokenBlacklist, users middleware.UserResolver, jwtSecret string) {

	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout is deliberately unauthenticated: a client holding only a
	// refresh token (its access token may have expired) can still end its
	// session, and the handler never fails from the caller's perspective.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret, blacklist, users))
	auth.GET("/profile", a.Profile)
	auth.PATCH("/profile", a.UpdateProfile)
	auth.POST("/change-password", a.ChangePassword)
	auth.GET("/preferences", p.Get)
	auth.PUT("/preferences", p.Update)

	admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret, blacklist, users), middleware.RequireStaff())
	admin.POST("/blacklist/purge", adm.PurgeBlacklist)
}

// RegisterMovies wires the unauthenticated TMDB proxy routes. The response
// cache middleware makes repeated catalog lookups cheap; guests can browse
// without an account, matching the auth-skip list of the API.
func RegisterMovies(e *echo.Echo, m *handler.MoviesHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/movies", middleware.NewRedisCache(cacheCfg, rdb))
	g.GET("/search", m.Search)
	g.GET("/trending", m.Trending)
	g.GET("/popular", m.Popular)
	g.GET("/top-rated", m.TopRated)
	g.GET("/now-playing", m.NowPlaying)
	g.GET("/upcoming", m.Upcoming)
	g.GET("/genres", m.Genres)
	g.GET("/genres/:id", m.ByGenre)
	g.GET("/:id", m.Details)
	g.GET("/:id/credits", m.Credits)
	g.GET("/:id/videos", m.Videos)
	g.GET("/:id/similar", m.Similar)
}

// RegisterWatchlist wires the per-user watchlist CRUD; every route
// requires a valid access token.
func RegisterWatchlist(e *echo.Echo, w *handler.WatchlistHandler,
	blacklist middleware.TokenBlacklist, users middleware.UserResolver, jwtSecret string) {

	g := e.Group("/v1/watchlist", middleware.JWTAuth(jwtSecret, blacklist, users))
	g.GET("", w.List)
	g.POST("/add", w.Add)
	g.DELETE("/remove/:movie_id", w.Remove)
	g.GET("/check/:movie_id", w.Status)
	g.PUT("/mark-watched/:movie_id", w.MarkWatched)
}
