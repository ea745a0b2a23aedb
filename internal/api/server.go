// Package api provides the HTTP status and read API.
package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/reconciler"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
)

// YieldReader answers claimable-yield queries
type YieldReader interface {
	ClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error)
}

// LeaderboardReader serves ranked rollups
type LeaderboardReader interface {
	Top(ctx context.Context, limit int) ([]*models.LeaderboardRow, error)
}

// PropertyGetter serves cached property snapshots
type PropertyGetter interface {
	GetByTokenID(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error)
}

// ReconcilerStatus reports catch-up scan progress
type ReconcilerStatus interface {
	Status() reconciler.Status
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes reconciler health and read-only cache views over HTTP
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	pool        *rpc.EndpointPool
	reconciler  ReconcilerStatus
	yield       YieldReader
	leaderboard LeaderboardReader
	properties  PropertyGetter
	logger      *logging.Logger
}

// NewServer creates a new API server instance
func NewServer(config *ServerConfig, pool *rpc.EndpointPool, rec ReconcilerStatus, yield YieldReader, leaderboard LeaderboardReader, properties PropertyGetter, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:      mux.NewRouter(),
		pool:        pool,
		reconciler:  rec,
		yield:       yield,
		leaderboard: leaderboard,
		properties:  properties,
		logger:      logger,
	}

	s.router.Use(LoggingMiddleware(logger))
	s.router.Use(RecoveryMiddleware(logger))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Router returns the configured router, for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/status/pool", s.handlePoolStatus).Methods("GET")
	s.router.HandleFunc("/status/reconciler", s.handleReconcilerStatus).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/properties/{tokenId}", s.handleGetProperty).Methods("GET")
	api.HandleFunc("/properties/{tokenId}/yield", s.handleGetYield).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tycoon-reconciler",
	})
}

func (s *Server) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pool.Status())
}

func (s *Server) handleReconcilerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.reconciler.Status())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	rows, err := s.leaderboard.Top(r.Context(), limit)
	if err != nil {
		s.respondFromError(w, "leaderboard query failed", err)
		return
	}
	if rows == nil {
		rows = []*models.LeaderboardRow{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": rows})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathTokenID(w, r)
	if !ok {
		return
	}
	snapshot, err := s.properties.GetByTokenID(r.Context(), tokenID)
	if err != nil {
		if apperrors.Category(err) == apperrors.CategoryDatabase {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "property not cached")
			return
		}
		s.respondFromError(w, "property lookup failed", err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleGetYield(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathTokenID(w, r)
	if !ok {
		return
	}
	result, err := s.yield.ClaimableYield(r.Context(), tokenID)
	if err != nil {
		s.respondFromError(w, "yield computation failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) respondFromError(w http.ResponseWriter, message string, err error) {
	s.logger.WithError(err).Warn(message)
	if apperrors.IsAllEndpointsFailed(err) {
		respondError(w, http.StatusServiceUnavailable, "CHAIN_UNAVAILABLE", "all RPC endpoints failed")
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

func pathTokenID(w http.ResponseWriter, r *http.Request) (*big.Int, bool) {
	raw := mux.Vars(r)["tokenId"]
	tokenID, ok := new(big.Int).SetString(raw, 10)
	if !ok || tokenID.Sign() < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_TOKEN_ID", "token id must be a non-negative integer")
		return nil, false
	}
	return tokenID, true
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
