// Package main provides the API server entry point for the contract scanner service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contract-scanner/internal/admission"
	"github.com/contract-scanner/internal/api"
	"github.com/contract-scanner/internal/config"
	"github.com/contract-scanner/internal/history"
	"github.com/contract-scanner/internal/identity"
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/quota"
	"github.com/contract-scanner/internal/scan"
	"github.com/contract-scanner/internal/storage"
	"github.com/contract-scanner/internal/tier"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize identity resolution
	accountRepo := storage.NewAccountRepository(postgres)
	provider := identity.NewStoreProvider(accountRepo)

	// Initialize quota and admission
	quotaStore, err := quota.NewStore(&quota.StoreConfig{
		Redis: redis.Client(),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create quota store")
	}

	admissionCtrl, err := admission.NewController(&admission.ControllerConfig{
		Policies: tier.Defaults(),
		Quota:    quotaStore,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create admission controller")
	}

	// Initialize scan pipeline
	engine, err := scan.NewHTTPEngine(&scan.HTTPEngineConfig{
		BaseURL: cfg.Engine.BaseURL,
		Timeout: cfg.Engine.Timeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create engine client")
	}

	historyStore := history.NewClickHouseStore(clickhouse)
	trendAnalyzer := history.NewAnalyzer(historyStore, time.Now)

	orchestrator, err := scan.NewOrchestrator(&scan.OrchestratorConfig{
		Engine:      engine,
		History:     historyStore,
		Workers:     cfg.Scan.Workers,
		ItemTimeout: cfg.Scan.ItemTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create orchestrator")
	}

	logger.Info("Services initialized")

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		FreeTierRPS:     cfg.RateLimit.FreeTier,
		BasicTierRPS:    cfg.RateLimit.BasicTier,
		ProTierRPS:      cfg.RateLimit.ProTier,
		EnterpriseRPS:   cfg.RateLimit.EnterpriseTier,
		HealthChecks: map[string]api.HealthCheck{
			"postgres":   postgres.Ping,
			"clickhouse": clickhouse.Ping,
			"redis":      redis.Ping,
		},
	}

	server := api.NewServer(serverConfig, admissionCtrl, orchestrator, historyStore, trendAnalyzer, provider)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
