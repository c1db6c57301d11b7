package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stablemint/rsm/internal/engine"
	"github.com/stablemint/rsm/internal/ledger"
	"github.com/stablemint/rsm/internal/logger"
	"github.com/stablemint/rsm/internal/oracle"
	"github.com/stablemint/rsm/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the engine over HTTP
type WebServer struct {
	router *mux.Router
	addr   string
	engine *engine.Engine
}

// operationRequest is the body for all four state-mutating endpoints.
// Amount is a base-unit decimal string.
type operationRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// NewWebServer creates a new web server instance
func NewWebServer(addr string, eng *engine.Engine) *WebServer {
	if addr == "" {
		addr = ":8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		addr:   addr,
		engine: eng,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Prometheus metrics
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/mint", ws.handleMint).Methods("POST")
	api.HandleFunc("/burn", ws.handleBurn).Methods("POST")
	api.HandleFunc("/fund", ws.handleFund).Methods("POST")
	api.HandleFunc("/defund", ws.handleDefund).Methods("POST")
	api.HandleFunc("/operations", ws.handleGetOperations).Methods("GET")
	api.HandleFunc("/operations/{id}", ws.handleGetOperation).Methods("GET")
	api.HandleFunc("/floor-changes", ws.handleGetFloorChanges).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("addr", ws.addr).Msg("Starting web server")

	server := &http.Server{
		Addr:         ws.addr,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	oracleHealthy := true
	if _, err := ws.engine.Status(); err != nil {
		oracleHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "rsm-reserve-stable-mint",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"oracle_healthy":   oracleHealthy,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetStatus returns a consistent snapshot of the engine state
func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := ws.engine.Status()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get engine status")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to retrieve engine status")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, status)
}

// handleMint exchanges reserve for newly minted stable tokens
func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, "mint", ws.engine.Mint)
}

// handleBurn redeems stable tokens for reserve
func (ws *WebServer) handleBurn(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, "burn", ws.engine.Burn)
}

// handleFund exchanges reserve for newly minted funding tokens
func (ws *WebServer) handleFund(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, "fund", ws.engine.Fund)
}

// handleDefund redeems funding tokens for reserve
func (ws *WebServer) handleDefund(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, "defund", ws.engine.Defund)
}

// handleOperation parses the shared request shape, runs the operation, and
// writes the result
func (ws *WebServer) handleOperation(w http.ResponseWriter, r *http.Request, name string, op func(string, sdkmath.Int) (sdkmath.Int, error)) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Account is required")
		return
	}

	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Amount must be a base-unit integer string")
		return
	}

	out, err := op(req.Account, amount)
	if err != nil {
		webLogger.Warn().
			Err(err).
			Str("operation", name).
			Str("account", req.Account).
			Str("amount", req.Amount).
			Msg("Operation rejected")
		ws.writeErrorResponse(w, operationStatusCode(err), err.Error())
		return
	}

	response := map[string]interface{}{
		"operation":  name,
		"account":    req.Account,
		"amount_in":  amount.String(),
		"amount_out": out.String(),
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetOperations returns recent operation receipts
func (ws *WebServer) handleGetOperations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentOperations(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent operations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve operations")
		return
	}

	response := map[string]interface{}{
		"operations": receipts,
		"count":      len(receipts),
		"limit":      limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetOperation returns a specific operation receipt by ID
func (ws *WebServer) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	receipt, err := state.GetOperationByID(id)
	if err != nil {
		webLogger.Error().Err(err).Str("operationId", id).Msg("Failed to get operation")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve operation")
		return
	}
	if receipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Operation not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetFloorChanges returns recent floor price transitions
func (ws *WebServer) handleGetFloorChanges(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	changes, err := state.GetRecentFloorChanges(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get floor changes")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve floor changes")
		return
	}

	response := map[string]interface{}{
		"floor_changes": changes,
		"count":         len(changes),
		"limit":         limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// operationStatusCode maps engine errors to HTTP status codes
func operationStatusCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoFunding),
		errors.Is(err, engine.ErrUndercollateralized),
		errors.Is(err, engine.ErrMaxDebtRatio),
		errors.Is(err, engine.ErrInsufficientReserve),
		errors.Is(err, engine.ErrZeroFundingPrice):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, oracle.ErrUnavailable), errors.Is(err, oracle.ErrInvalidPrice):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
