// Command apiserver serves the MedRecord-NER HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/bootstrap"
	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/auth"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/MedRecord-NER/internal/interfaces/http"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/handlers"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/middleware"
)

const rateLimitCleanup = 5 * time.Minute

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPaths: cfg.Log.OutputPaths})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	logger.Info("starting MedRecord-NER API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("model", cfg.Model.Name),
		logging.String("splitter", cfg.Splitter.Provider))

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			if err := logging.SetLevel(logger, next.Log.Level); err != nil {
				logger.Warn("log level not applied", logging.Err(err))
				return
			}
			logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		}, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	var (
		collector prometheus.MetricsCollector
		metrics   *prometheus.AppMetrics
	)
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: cfg.Metrics.Namespace}, logger)
		if err != nil {
			return err
		}
		metrics = prometheus.NewAppMetrics(collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("build extraction stack: %w", err)
	}
	defer components.Close()

	checks := []handlers.HealthChecker{handlers.NewCheck("model", components.Backend.Healthy)}
	if components.Redis != nil {
		checks = append(checks, handlers.NewCheck("redis", components.Redis.Ping))
	}

	var limiter middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		tb := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, rateLimitCleanup)
		defer tb.Stop()
		limiter = tb
	}

	var verifier auth.Verifier
	if cfg.Auth.Enabled {
		verifier, err = auth.NewVerifier(auth.Config{
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   cfg.Auth.Leeway,
		})
		if err != nil {
			return err
		}
		logger.Info("bearer-token auth enabled", logging.String("required_role", cfg.Auth.RequiredRole))
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ExtractionHandler: handlers.NewExtractionHandler(components.Service, logger),
		HealthHandler:     handlers.NewHealthHandler(version, components.Service, checks...),
		CORSOrigins:       cfg.Server.CORSOrigins,
		MaxBodySize:       cfg.Server.MaxBodySize,
		RateLimiter:       limiter,
		Verifier:          verifier,
		RequiredRole:      cfg.Auth.RequiredRole,
		Logger:            logger,
		Metrics:           metrics,
		MetricsCollector:  collector,
		MetricsPath:       cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("API server stopped")
	return nil
}

//Personal.AI order the ending
