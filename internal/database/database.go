// Package database opens the MySQL connection pool and applies the
// application schema on startup.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL, sizes the pool and verifies the connection.
// maxConns bounds both open and idle connections; values below 1 fall back
// to a sensible default.
func Open(user, pass, host, port, name string, maxConns int) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if maxConns < 1 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema contains the idempotent DDL for all application tables. Uniqueness
// is enforced here, not in application code: duplicate registrations and
// duplicate blacklist inserts are resolved by these indexes even when two
// requests race.
var schema = []string{
	// username is collated binary: "alice" and "ALICE" are distinct
	// accounts, both for the unique index and for login lookups. Email has
	// no such requirement since the application lowercases it on write.
	`CREATE TABLE IF NOT EXISTS users (
		id              CHAR(36)     NOT NULL,
		username        VARCHAR(150) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		email           VARCHAR(254) NOT NULL,
		password_hash   VARCHAR(255) NOT NULL,
		first_name      VARCHAR(150) NOT NULL DEFAULT '',
		last_name       VARCHAR(150) NOT NULL DEFAULT '',
		bio             VARCHAR(500) NOT NULL DEFAULT '',
		profile_picture VARCHAR(500) NOT NULL DEFAULT '',
		date_of_birth   DATE         NULL,
		favorite_genres TEXT         NULL,
		is_active       TINYINT(1)   NOT NULL DEFAULT 1,
		is_staff        TINYINT(1)   NOT NULL DEFAULT 0,
		is_superuser    TINYINT(1)   NOT NULL DEFAULT 0,
		last_login      DATETIME     NULL,
		created_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id             CHAR(36)        NOT NULL,
		preferred_genres    TEXT            NULL,
		preferred_languages TEXT            NULL,
		min_rating          DOUBLE          NOT NULL DEFAULT 6.0,
		include_adult       TINYINT(1)      NOT NULL DEFAULT 0,
		created_at          DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_preferences_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS blacklisted_tokens (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		token          TEXT            NOT NULL,
		token_hash     CHAR(64)        NOT NULL,
		blacklisted_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at     DATETIME        NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_blacklist_hash (token_hash),
		KEY idx_blacklist_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS watchlist_items (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id            CHAR(36)        NOT NULL,
		movie_id           VARCHAR(32)     NOT NULL,
		movie_title        VARCHAR(500)    NOT NULL,
		movie_poster       VARCHAR(500)    NOT NULL DEFAULT '',
		movie_overview     TEXT            NULL,
		movie_release_date VARCHAR(32)     NOT NULL DEFAULT '',
		movie_rating       DOUBLE          NOT NULL DEFAULT 0,
		is_watched         TINYINT(1)      NOT NULL DEFAULT 0,
		user_rating        DOUBLE          NULL,
		user_review        TEXT            NULL,
		date_added         DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		date_watched       DATETIME        NULL,
		created_at         DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_watchlist_user_movie (user_id, movie_id),
		KEY idx_watchlist_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema statements one by one. Every statement is
// IF NOT EXISTS so running migrations on every startup is safe.
func Migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
