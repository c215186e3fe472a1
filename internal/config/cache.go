package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of the TMDB proxy routes. When Enabled is false or no Redis
// client is configured, caching is disabled. Methods lists the HTTP methods
// to cache (e.g. GET). TTL defines the lifetime of cache entries.
// KeyStrategy determines which parts of the request contribute to the cache
// key. Prefix and MaxBodyBytes control namespacing and the maximum size of
// responses to cache.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set. TMDB catalog data changes
// slowly, so the default TTL is generous compared to typical API caching.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      boolOr("CACHE_ENABLED", true),
		Methods:      parseMethods(strOr("CACHE_METHODS", "GET")),
		TTL:          durOr("CACHE_TTL", 5*time.Minute),
		KeyStrategy:  strOr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       strOr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: intOr("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func durOr(key string, def time.Duration) time.Duration {
	v := strOr(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
