package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/moviesvault/movies-vault/internal/config"
)

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func hitOnce(e *echo.Echo, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/movies/popular", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestTokenBucketExhaustion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := echo.New()
	mw := NewTokenBucket(testRateConfig(), rdb)

	// Capacity 2: two requests pass, the third is throttled.
	for i := 0; i < 2; i++ {
		if rec := hitOnce(e, mw); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := hitOnce(e, mw)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled response missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestTokenBucketRefill(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testRateConfig()
	cfg.Capacity = 1
	cfg.RefillInterval = 50 * time.Millisecond
	e := echo.New()
	mw := NewTokenBucket(cfg, rdb)

	if rec := hitOnce(e, mw); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := hitOnce(e, mw); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}

	time.Sleep(60 * time.Millisecond)
	if rec := hitOnce(e, mw); rec.Code != http.StatusOK {
		t.Fatalf("request after refill: status = %d", rec.Code)
	}
}

func TestTokenBucketDisabledPassThrough(t *testing.T) {
	cfg := testRateConfig()
	cfg.Enabled = false
	e := echo.New()
	mw := NewTokenBucket(cfg, nil)

	for i := 0; i < 10; i++ {
		if rec := hitOnce(e, mw); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close() // every Redis call now errors

	e := echo.New()
	mw := NewTokenBucket(testRateConfig(), rdb)
	for i := 0; i < 5; i++ {
		if rec := hitOnce(e, mw); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, limiter must fail open", i+1, rec.Code)
		}
	}
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies/popular", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/movies/popular")
	c.Set("user_id", "u1")

	cfg := testRateConfig()
	for strategy, want := range map[string]string{
		"ip":    "rl:ip:10.0.0.1",
		"user":  "rl:user:u1",
		"route": "rl:route:GET /v1/movies/popular",
		"other": "rl:ip:10.0.0.1:user:u1:route:GET /v1/movies/popular",
	} {
		cfg.KeyStrategy = strategy
		if got := buildRateKey(cfg, c); got != want {
			t.Errorf("strategy %q: key = %q, want %q", strategy, got, want)
		}
	}
}

func TestCurrentUserIDFallsBackToAnon(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := currentUserID(c); got != "anon" {
		t.Fatalf("currentUserID = %q, want anon", got)
	}
}
