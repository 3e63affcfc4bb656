package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the full schema as idempotent DDL.  Statements run in
// order at startup so a fresh database is usable without external tooling.
// The UNIQUE keys on purchases carry the entitlement invariants: one row
// per (user, film) and one row per payment reference.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		display_name  VARCHAR(120)    NOT NULL DEFAULT '',
		is_filmmaker  TINYINT(1)      NOT NULL DEFAULT 0,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS films (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title         VARCHAR(200)    NOT NULL,
		description   TEXT            NULL,
		price_cents   INT UNSIGNED    NOT NULL,
		film_type     VARCHAR(50)     NOT NULL DEFAULT '',
		object_key    VARCHAR(255)    NOT NULL,
		thumbnail_key VARCHAR(255)    NOT NULL DEFAULT '',
		creator_id    BIGINT UNSIGNED NOT NULL,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_films_creator (creator_id),
		CONSTRAINT fk_films_creator FOREIGN KEY (creator_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id     BIGINT UNSIGNED NOT NULL,
		film_id     BIGINT UNSIGNED NOT NULL,
		payment_ref VARCHAR(120)    NOT NULL,
		created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_purchases_user_film (user_id, film_id),
		UNIQUE KEY uq_purchases_payment_ref (payment_ref),
		CONSTRAINT fk_purchases_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_purchases_film FOREIGN KEY (film_id) REFERENCES films (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
