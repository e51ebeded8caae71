package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/NeuralTrust/mcp-guardrail/pkg/audit"
	"github.com/NeuralTrust/mcp-guardrail/pkg/background"
	"github.com/NeuralTrust/mcp-guardrail/pkg/batch"
	"github.com/NeuralTrust/mcp-guardrail/pkg/config"
	handlers "github.com/NeuralTrust/mcp-guardrail/pkg/handlers/http"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
	infraLogger "github.com/NeuralTrust/mcp-guardrail/pkg/infra/logger"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/metrics"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/ratelimitstore"
	"github.com/NeuralTrust/mcp-guardrail/pkg/metadata"
	"github.com/NeuralTrust/mcp-guardrail/pkg/mirror"
	"github.com/NeuralTrust/mcp-guardrail/pkg/policy"
	"github.com/NeuralTrust/mcp-guardrail/pkg/ratelimit"
	"github.com/NeuralTrust/mcp-guardrail/pkg/scanner"
	"github.com/NeuralTrust/mcp-guardrail/pkg/server"
	"github.com/NeuralTrust/mcp-guardrail/pkg/server/router"
	"github.com/NeuralTrust/mcp-guardrail/pkg/threat"
	"github.com/NeuralTrust/mcp-guardrail/pkg/validation"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.New()

	cfg, err := config.Load("./config")
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	metrics.Initialize()

	egressClient := httpx.NewFastHTTPClient()

	policyClient := policy.NewClient(egressClient, cfg.Policy.BaseURL, cfg.Policy.Token, logger)
	scannerClient := scanner.NewClient(egressClient, cfg.Scanner.URL, logger)
	threatReporter := threat.NewReporter(egressClient, cfg.Threat.URL, cfg.Threat.Token, logger)
	metadataAuditor := metadata.NewAuditor(egressClient, cfg.Policy.BaseURL, cfg.Policy.Token, logger)

	var rateLimitStore ratelimitstore.Store
	if cfg.Features.RateLimitStoreEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rateLimitStore = ratelimitstore.NewRedisStore(redisClient)
	}

	rateLimitValidator := ratelimit.NewValidator(rateLimitStore, logger)
	auditValidator := audit.NewValidator(logger)

	backgroundGroup := background.NewGroup()

	engine := validation.NewEngine(cfg.Features.GuardrailsEnabled, rateLimitValidator, auditValidator, scannerClient, metadataAuditor, threatReporter, logger)
	batchProcessor := batch.NewProcessor(policyClient, engine, backgroundGroup, logger)

	var teer mirror.Teer
	if cfg.Mirror.URL != "" {
		teer = mirror.NewTeer(egressClient, cfg.Mirror.URL, logger)
	} else {
		teer = mirror.NewNoopTeer()
	}

	transport := handlers.HandlerTransport{
		IngestDataHandler:       handlers.NewIngestDataHandler(batchProcessor, teer, backgroundGroup, logger),
		ValidateRequestHandler:  handlers.NewValidateRequestHandler(policyClient, engine, backgroundGroup, logger),
		ValidateResponseHandler: handlers.NewValidateResponseHandler(policyClient, engine, backgroundGroup, logger),
		HealthHandler:           handlers.NewHealthHandler(),
		GetVersionHandler:       handlers.NewGetVersionHandler(logger),
	}

	gatewayRouter := router.NewGatewayRouter(transport)
	srv := server.NewGatewayServer(cfg, logger, gatewayRouter)

	go func() {
		if err := srv.Run(); err != nil {
			logger.WithError(err).Fatal("gateway server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("error during server shutdown")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	drained := make(chan struct{})
	go func() {
		_ = backgroundGroup.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		logger.Info("background work drained")
	case <-drainCtx.Done():
		logger.Warn("timed out waiting for background work to drain")
	}
}
