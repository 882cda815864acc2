package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/100xengineers/self-discovery-backend/internal/config"
)

// DB is the shared sqlx handle for the service's local tables, auth sessions
// and the usage ledger.
type DB struct {
	*sqlx.DB
}

// NewConnection opens and pings a Postgres pool. The pool is sized small:
// the only local writes are session rows and one ledger row per turn.
func NewConnection(cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &DB{db}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

// GetDSN builds the URL form of the connection string, which the migration
// driver expects.
func GetDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}
