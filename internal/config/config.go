package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Secrets (the JWT signing key, the TMDB API key)
// are only ever read from the environment and are handed to constructors
// explicitly; nothing in the codebase reaches for a process-wide singleton.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxConns     int    // connection pool size (open and idle)
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// BlacklistAfterRotation controls whether the old refresh token is
	// written to the blacklist when /auth/refresh rotates it. Defaults to
	// false: a rotated-away refresh token stays usable until natural expiry.
	BlacklistAfterRotation bool

	TMDBAPIKey  string // The Movie Database API key
	TMDBBaseURL string // TMDB API base URL (default https://api.themoviedb.org/3)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxConns:     intOr("DB_MAX_CONNS", 25),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   intOr("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: intOr("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     intOr("BCRYPT_COST", 12),

		BlacklistAfterRotation: boolOr("BLACKLIST_AFTER_ROTATION", false),

		TMDBAPIKey:  must("TMDB_API_KEY"),
		TMDBBaseURL: strOr("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func strOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func boolOr(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}
