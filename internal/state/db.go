package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/stablemint/rsm/internal/logger"
)

var (
	// DB is the global database connection pool
	DB *sql.DB

	dbLogger = logger.GetForComponent("state")
)

// DBConfig holds database connection parameters
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// InitDB initializes the global database connection pool
func InitDB(cfg DBConfig) error {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	dbLogger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.DBName).
		Msg("Database connection established.")

	return nil
}

// CloseDB closes the global database connection pool
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			dbLogger.Error().Err(err).Msg("Error closing database connection.")
		} else {
			dbLogger.Info().Msg("Database connection closed.")
		}
	}
}

// EnsureSchema creates the required tables and indexes if they do not exist
func EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operation_receipts (
		receipt_id UUID PRIMARY KEY,
		op_type VARCHAR(16) NOT NULL,
		actor TEXT NOT NULL,
		amount_in NUMERIC(78,0) NOT NULL,
		amount_out NUMERIC(78,0) NOT NULL,
		oracle_price NUMERIC(78,0) NOT NULL,
		debt_ratio_after VARCHAR(96) NOT NULL,
		floor_price NUMERIC(78,0) NOT NULL,
		op_timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operation_receipts_timestamp
		ON operation_receipts (op_timestamp DESC);

	CREATE INDEX IF NOT EXISTS idx_operation_receipts_actor
		ON operation_receipts (actor);

	CREATE TABLE IF NOT EXISTS floor_changes (
		change_id SERIAL PRIMARY KEY,
		previous_price NUMERIC(78,0) NOT NULL,
		new_price NUMERIC(78,0) NOT NULL,
		debt_ratio VARCHAR(96) NOT NULL,
		change_timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_floor_changes_timestamp
		ON floor_changes (change_timestamp DESC);
	`

	if _, err := DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	dbLogger.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection verifies the database is reachable
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
