// Command worker consumes documents from Kafka, extracts patient records and
// publishes them to the record topic.  Messages that keep failing go to the
// document topic's .dlq.
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
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/MedRecord-NER/internal/interfaces/http"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/handlers"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/messaging"
)

const (
	defaultHealthPort = 8081
	shutdownTimeout   = 30 * time.Second
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	workers := flag.Int("workers", 0, "number of consumers in the group (default: worker.concurrency)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	ensureTopics := flag.Bool("ensure-topics", false, "create the document, record and dead-letter topics at startup")
	flag.Parse()

	if err := run(*configPath, *workers, *healthPort, *ensureTopics); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workers, healthPort int, ensureTopics bool) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPaths: cfg.Log.OutputPaths})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	if workers <= 0 {
		workers = cfg.Worker.Concurrency
	}
	logger.Info("starting MedRecord-NER worker",
		logging.String("version", version),
		logging.Int("workers", workers),
		logging.String("document_topic", cfg.Kafka.DocumentTopic),
		logging.String("record_topic", cfg.Kafka.RecordTopic))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: cfg.Metrics.Namespace}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("build extraction stack: %w", err)
	}
	defer components.Close()

	if ensureTopics {
		tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
		if err != nil {
			return err
		}
		err = tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.DocumentTopic, cfg.Kafka.RecordTopic))
		tm.Close()
		if err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers, Acks: "all"}, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	handler := messaging.NewDocumentHandler(components.Service, producer, cfg.Kafka.RecordTopic, logger)
	consumers := make([]*kafka.Consumer, 0, workers)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < workers; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  []string{cfg.Kafka.DocumentTopic},
			Retry: kafka.RetryConfig{
				MaxRetries:   cfg.Worker.MaxRetries,
				RetryBackoff: cfg.Worker.RetryBackoff,
				DeadLetter:   true,
			},
		}, producer, logger.With(logging.Int("consumer", i)))
		if err != nil {
			return err
		}
		c.Subscribe(cfg.Kafka.DocumentTopic, handler.Handle)
		c.OnOutcome(func(o kafka.Outcome) {
			prometheus.RecordMessage(metrics, o.Topic, o.Duration, o.Err)
			if o.DeadLettered {
				prometheus.RecordError(metrics, "worker", "dead_lettered")
			}
		})
		if err := c.Start(ctx); err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	gin.SetMode(gin.ReleaseMode)
	checks := []handlers.HealthChecker{handlers.NewCheck("model", components.Backend.Healthy)}
	if components.Redis != nil {
		checks = append(checks, handlers.NewCheck("redis", components.Redis.Ping))
	}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, components.Service, checks...),
		Logger:           logger,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	health := httpserver.NewServer(config.ServerConfig{Host: cfg.Server.Host, Port: healthPort, ShutdownTimeout: shutdownTimeout}, router, logger)
	go func() {
		if err := health.Start(); err != nil {
			logger.Error("health server failed", logging.Err(err), logging.Int("port", healthPort))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := health.Stop(shutdownCtx); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}
	sent, failed := producer.Stats()
	logger.Info("worker stopped", logging.Int64("published", sent), logging.Int64("publish_failures", failed))
	return nil
}

//Personal.AI order the ending
