package main

import (
	"os"
	"os/signal"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stablemint/rsm/internal/config"
	"github.com/stablemint/rsm/internal/engine"
	"github.com/stablemint/rsm/internal/fixed"
	"github.com/stablemint/rsm/internal/ledger"
	"github.com/stablemint/rsm/internal/logger"
	"github.com/stablemint/rsm/internal/oracle"
	"github.com/stablemint/rsm/internal/state"
	"github.com/stablemint/rsm/internal/web"
)

// main is the entry point for the reserve-stable-mint daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("RSM engine starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Price Oracle ---
	source, err := buildOracle()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build price oracle")
	}
	if _, err := source.LatestPrice(); err != nil {
		log.Fatal().Err(err).Msg("Price oracle is not answering; cannot start")
	}
	log.Info().Str("mode", config.OracleMode).Msg("Price oracle ready")

	// --- 3. Token Ledgers ---
	params := config.DefaultEngineParameters

	reserveLedger, reserveSupply, err := ledger.New(params.ReserveDenom)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reserve ledger")
	}
	_, stableSupply, err := ledger.New(params.StableDenom)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stable ledger")
	}
	_, fundingSupply, err := ledger.New(params.FundingDenom)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create funding ledger")
	}

	// Seed the genesis account with the initial reserve supply.
	genesisReserve, ok := sdkmath.NewIntFromString(config.GenesisReserve)
	if !ok {
		log.Fatal().Str("value", config.GenesisReserve).Msg("GENESIS_RESERVE must be a base-unit integer string")
	}
	if err := reserveSupply.Mint(config.GenesisAccount, genesisReserve); err != nil {
		log.Fatal().Err(err).Msg("Failed to mint genesis reserve")
	}
	log.Info().
		Str("account", config.GenesisAccount).
		Str("amount", genesisReserve.String()).
		Msg("Genesis reserve minted")

	// --- 4. Engine ---
	engineConfig := engine.Config{
		Oracle:        source,
		ReserveLedger: reserveLedger,
		StableSupply:  stableSupply,
		FundingSupply: fundingSupply,
		Params:        params,
		Recorder:      state.NewEventRecorder(),
	}

	eng, err := engine.New(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	log.Info().Msg("Engine created successfully")

	// --- 5. Web Server ---
	webServer := web.NewWebServer(config.WebListenAddr, eng)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Web server failed")
		}
	}()

	// --- 6. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, stopping.")
}

// buildOracle constructs the configured price source: a single static price
// for development, or a median over the configured HTTP feeds.
func buildOracle() (oracle.Source, error) {
	if config.OracleMode == "static" {
		price, ok := sdkmath.NewIntFromString(config.StaticPrice)
		if !ok {
			log.Fatal().Str("value", config.StaticPrice).Msg("STATIC_PRICE must be a base-unit integer string")
		}
		return oracle.NewStatic(price, fixed.Decimals)
	}

	sources := make([]oracle.Source, 0, len(config.OracleFeedURLs))
	for _, url := range config.OracleFeedURLs {
		src, err := oracle.NewHTTPSource(url, config.FeedDecimalShift)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return oracle.NewMedian(sources...)
}
