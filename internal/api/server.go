// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/contract-scanner/internal/admission"
	"github.com/contract-scanner/internal/history"
	"github.com/contract-scanner/internal/identity"
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/scan"
	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

// Service interfaces for dependency injection and testing

// AdmissionInterface defines the interface for admission decisions
type AdmissionInterface interface {
	Admit(ctx context.Context, account *models.Account, requests []models.ScanRequest) (*admission.Decision, error)
	Usage(ctx context.Context, account *models.Account) (*models.UsageStats, error)
	Policy(t types.Tier) tier.Policy
}

// OrchestratorInterface defines the interface for running admitted scans
type OrchestratorInterface interface {
	ScanOne(ctx context.Context, req models.ScanRequest) (*scan.Result, error)
	ScanBatch(ctx context.Context, requests []models.ScanRequest) *models.BatchResult
}

// TrendsInterface defines the interface for trend analysis
type TrendsInterface interface {
	Trends(ctx context.Context, chain types.ChainID, address string, days int) (*models.ContractTrends, error)
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	admission    AdmissionInterface
	orchestrator OrchestratorInterface
	historyStore history.Store
	trends       TrendsInterface
	provider     identity.Provider
	config       *ServerConfig
}

// HealthCheck probes one backing component for the health endpoint.
type HealthCheck func(ctx context.Context) error

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int
	BasicTierRPS    int
	ProTierRPS      int
	EnterpriseRPS   int

	// HealthChecks maps component names to connectivity probes. Empty
	// means the health endpoint only reports process liveness.
	HealthChecks map[string]HealthCheck
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	admissionCtrl AdmissionInterface,
	orchestrator OrchestratorInterface,
	historyStore history.Store,
	trends TrendsInterface,
	provider identity.Provider,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		admission:    admissionCtrl,
		orchestrator: orchestrator,
		historyStore: historyStore,
		trends:       trends,
		provider:     provider,
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(
		s.config.FreeTierRPS,
		s.config.BasicTierRPS,
		s.config.ProTierRPS,
		s.config.EnterpriseRPS,
	)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(AuthMiddleware(s.provider))
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/batch-scan", s.handleBatchScan).Methods("POST")
	api.HandleFunc("/history/{chain}/{address}", s.handleHistory).Methods("GET")
	api.HandleFunc("/trends/{chain}/{address}", s.handleTrends).Methods("GET")
	api.HandleFunc("/usage", s.handleUsage).Methods("GET")
}

// handleHealth handles health check requests. Configured component
// probes run with a short deadline; any failure degrades the report.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.config.HealthChecks) == 0 {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "contract-scanner",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	statusCode := http.StatusOK
	components := make(map[string]string, len(s.config.HealthChecks))
	for name, check := range s.config.HealthChecks {
		if err := check(ctx); err != nil {
			logging.WithField("component", name).WithError(err).Warn("Health check failed")
			components[name] = "unreachable"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	respondJSON(w, statusCode, map[string]interface{}{
		"status":     status,
		"service":    "contract-scanner",
		"components": components,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
