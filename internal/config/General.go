package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel controls the global logging verbosity ("debug", "info", "warn", "error").
	LogLevel string

	// OracleMode selects the price source: "static" for a fixed price, "http" for
	// a median over the configured feed URLs.
	OracleMode string
	// StaticPrice is the fixed reserve price in base units, used when OracleMode is "static".
	StaticPrice string
	// FeedDecimalShift is the decimal shift the HTTP feeds report prices in.
	FeedDecimalShift int64

	// GenesisAccount is the account credited with the initial reserve supply.
	GenesisAccount string
	// GenesisReserve is the initial reserve supply in base units.
	GenesisReserve string

	// Database connection parameters.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LogLevel, err = getEnv("LOG_LEVEL")
	if err != nil {
		return err
	}

	OracleMode, err = getEnv("ORACLE_MODE")
	if err != nil {
		return err
	}
	if OracleMode != "static" && OracleMode != "http" {
		return errors.New("ORACLE_MODE must be \"static\" or \"http\", got: " + OracleMode)
	}

	if OracleMode == "static" {
		StaticPrice, err = getEnv("STATIC_PRICE")
		if err != nil {
			return err
		}
	} else {
		FeedDecimalShift, err = getEnvAsInt64("FEED_DECIMAL_SHIFT")
		if err != nil {
			return err
		}
	}

	GenesisAccount, err = getEnv("GENESIS_ACCOUNT")
	if err != nil {
		return err
	}

	GenesisReserve, err = getEnv("GENESIS_RESERVE")
	if err != nil {
		return err
	}

	DBHost, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}

	DBPort, err = getEnvAsInt("DB_PORT")
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode, err = getEnv("DB_SSLMODE")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("OracleMode", OracleMode).
		Str("GenesisAccount", GenesisAccount).
		Str("DBHost", DBHost).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
