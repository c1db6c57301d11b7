package config

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebListenAddr is the listen address for the HTTP API server (e.g., ":8080").
	WebListenAddr string
	// OracleFeedURLs is the list of HTTP price feed endpoints, used when
	// ORACLE_MODE is "http". The count must be odd so the median is well defined.
	OracleFeedURLs []string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	WebListenAddr, err = getEnv("WEB_LISTEN_ADDR")
	if err != nil {
		return err
	}

	if OracleMode == "http" {
		raw, err := getEnv("ORACLE_FEED_URLS")
		if err != nil {
			return err
		}
		OracleFeedURLs = nil
		for _, u := range strings.Split(raw, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				OracleFeedURLs = append(OracleFeedURLs, u)
			}
		}
		if len(OracleFeedURLs) == 0 {
			return errors.New("ORACLE_FEED_URLS must contain at least one URL when ORACLE_MODE is http")
		}
		if len(OracleFeedURLs)%2 == 0 {
			return errors.New("ORACLE_FEED_URLS must contain an odd number of URLs for median aggregation")
		}
	}

	log.Debug().
		Str("WebListenAddr", WebListenAddr).
		Int("OracleFeedCount", len(OracleFeedURLs)).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
