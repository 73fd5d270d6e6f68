package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/auth"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/handlers"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the HTTP route tree.
type RouterConfig struct {
	// Handlers
	ExtractionHandler *handlers.ExtractionHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	CORSOrigins   []string
	MaxBodySize   int64
	RateLimiter   middleware.RateLimiter
	LoggingConfig *middleware.LoggingConfig

	// Verifier, when set, guards /api/ner with bearer tokens.  RequiredRole
	// is checked on every verified token when non-empty.
	Verifier     auth.Verifier
	RequiredRole string

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the route tree:
//
//	GET  /healthz, /readyz            probes
//	GET  /metrics                     Prometheus scrape
//	GET  /api/health                  dependency summary
//	POST /api/ner/predict             entities only
//	POST /api/ner/extract-manual      entities and one patient record
//	POST /api/ner/extract-auto        split into patients, then extract each
//	POST /api/ner/split               split into patients only
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.LoggingConfig != nil {
		logCfg = *cfg.LoggingConfig
	}
	r.Use(middleware.RequestLogging(logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.DefaultRateLimitConfig()))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API ---
	api := r.Group("/api")
	if cfg.HealthHandler != nil {
		api.GET("/health", cfg.HealthHandler.APIHealth)
	}
	var guard []gin.HandlerFunc
	if cfg.Verifier != nil {
		guard = append(guard, middleware.Auth(cfg.Verifier, cfg.RequiredRole, logger))
	}
	registerExtractionRoutes(api, cfg.ExtractionHandler, cfg.MaxBodySize, guard...)

	return r
}

// registerExtractionRoutes mounts the extraction endpoints under /ner.
func registerExtractionRoutes(r *gin.RouterGroup, h *handlers.ExtractionHandler, maxBody int64, guard ...gin.HandlerFunc) {
	if h == nil {
		return
	}
	ner := r.Group("/ner", append(guard, middleware.BodyLimit(maxBody))...)
	ner.POST("/predict", h.Predict)
	ner.POST("/extract-manual", h.ExtractManual)
	ner.POST("/extract-auto", h.ExtractAuto)
	ner.POST("/split", h.Split)
}

//Personal.AI order the ending
