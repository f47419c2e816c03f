package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noah-isme/sma-qr-attendance/pkg/config"
)

// Open returns the SQL handle for the configured attendance sink driver.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.Attendance.SinkDriver {
	case config.SinkDriverPostgres:
		return NewPostgres(cfg.Database)
	case config.SinkDriverSQLite:
		return NewSQLite(cfg.SQLite)
	default:
		return nil, fmt.Errorf("sink driver %q is not SQL backed", cfg.Attendance.SinkDriver)
	}
}

// NewPostgres returns a configured PostgreSQL client shared by several kiosks.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	return ping(db, "postgres")
}

// NewSQLite opens a single-connection SQLite database for standalone kiosks.
func NewSQLite(cfg config.SQLiteConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "attendance.db"
	}
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; appends are already serialised by the ledger
	db.SetMaxOpenConns(1)

	return ping(db, "sqlite")
}

func ping(db *sqlx.DB, name string) (*sqlx.DB, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}
	return db, nil
}
