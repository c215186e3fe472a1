package config

import "time"

// RateLimitConfig drives the Redis-backed token bucket limiter. The bucket
// starts at Capacity and regains RefillTokens every RefillInterval. TTL
// bounds how long idle bucket state lives in Redis.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig builds a RateLimitConfig from environment variables,
// clamping nonsensical values to safe minimums.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolOr("RATE_LIMIT_ENABLED", true),
		Capacity:       intOr("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   intOr("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durOr("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            durOr("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strOr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         strOr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          boolOr("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
