package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/bad", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	var seen, fromCtx string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		fromCtx = logging.RequestIDFromContext(c.Request.Context())
	})

	w := serve(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", fromCtx)

	w = serve(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	w = serve(r, http.MethodGet, "/", map[string]string{HeaderRequestID: strings.Repeat("x", 200)})
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func observedLogger() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewLoggerFromCore(core), logs
}

func TestRequestLogging_Levels(t *testing.T) {
	logger, logs := observedLogger()
	r := newEngine(RequestID(), RequestLogging(logger, DefaultLoggingConfig()))

	serve(r, http.MethodGet, "/ok", nil)
	serve(r, http.MethodGet, "/bad", nil)
	serve(r, http.MethodGet, "/healthz", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.NotEmpty(t, entries[0].ContextMap()[logging.FieldRequestID])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 400, entries[1].ContextMap()["status"])
}

func TestRecovery(t *testing.T) {
	logger, logs := observedLogger()
	r := newEngine(Recovery(logger))

	w := serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"request_id":"","error":"internal server error","error_code":"COMMON_001"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestMetrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)
	r := newEngine(Metrics(prometheus.NewAppMetrics(collector)))

	serve(r, http.MethodGet, "/items/42", nil)
	serve(r, http.MethodGet, "/missing", nil)

	out := serve(collector.Handler(), http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="/items/:id",status_code="200"} 1`)
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)
	assert.Contains(t, out, `mw_http_active_requests{method="GET"} 0`)
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		r := newEngine(CORS([]string{"*"}))
		w := serve(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://example.org"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow list", func(t *testing.T) {
		r := newEngine(CORS([]string{"https://allowed.example"}))
		w := serve(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://allowed.example"})
		assert.Equal(t, "https://allowed.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = serve(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		r := newEngine(CORS([]string{"*"}))
		w := serve(r, http.MethodOptions, "/ok", map[string]string{
			"Origin":                        "https://example.org",
			"Access-Control-Request-Method": http.MethodPost,
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}

func TestTokenBucketLimiter(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2, 0)

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, info = l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1000, 1, 0)
	l.cleanupInterval = time.Millisecond
	l.Allow("a")
	time.Sleep(10 * time.Millisecond)
	l.cleanup()
	assert.Equal(t, 0, l.BucketCount())
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.SkipPaths = append(cfg.SkipPaths, "/healthz")
	r := newEngine(RateLimit(NewTokenBucketLimiter(0.001, 1, 0), cfg))

	w := serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), `"error_code":"COMMON_007"`)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", nil).Code)
	}
}

//Personal.AI order the ending
