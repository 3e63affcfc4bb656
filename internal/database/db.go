package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
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

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenWithRetry calls Open with bounded exponential backoff.  The database
// is often still starting when the API boots in a fresh environment, so we
// retry a handful of times and surface the last error once the budget is
// exhausted instead of looping forever.
func OpenWithRetry(user, pass, host, port, name string, attempts int) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Second
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := Open(user, pass, host, port, name)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if i < attempts {
			log.Printf("database: connect attempt %d/%d failed: %v; retrying in %s", i, attempts, err, backoff)
			time.Sleep(backoff)
			if backoff < 16*time.Second {
				backoff *= 2
			}
		}
	}
	return nil, fmt.Errorf("database: connect failed after %d attempts: %w", attempts, lastErr)
}
