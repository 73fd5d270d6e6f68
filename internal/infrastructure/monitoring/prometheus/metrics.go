package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service exports.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Decoding pipeline
	DocumentsTotal      CounterVec
	DocumentDuration    HistogramVec
	ChunksTotal         CounterVec
	EntitiesTotal       CounterVec
	LocatorMissesTotal  CounterVec
	SoftFixesTotal      CounterVec
	InferenceDuration   HistogramVec
	NormalizerFallbacks CounterVec

	// Patient splitting
	SplitterRequestsTotal CounterVec
	SplitterDuration      HistogramVec
	PatientsPerDocument   HistogramVec

	// Cache and messaging
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesTotal          CounterVec
	MessageProcessDuration HistogramVec
	MessageRetriesTotal    CounterVec

	// Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultInferenceDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5, 10}
	DefaultLLMDurationBuckets       = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultPatientCountBuckets      = []float64{1, 2, 3, 5, 8, 13, 21}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.DocumentsTotal = collector.RegisterCounter("documents_total", "Documents processed by the decoding pipeline", "status")
	m.DocumentDuration = collector.RegisterHistogram("document_duration_seconds", "End-to-end document decoding duration", DefaultHTTPDurationBuckets, "operation")
	m.ChunksTotal = collector.RegisterCounter("chunks_total", "Chunks planned", "kind")
	m.EntitiesTotal = collector.RegisterCounter("entities_total", "Entities emitted after dedup and merge", "type")
	m.LocatorMissesTotal = collector.RegisterCounter("locator_misses_total", "Entities that could not be anchored in the normalized text")
	m.SoftFixesTotal = collector.RegisterCounter("tag_soft_fixes_total", "Ill-formed tag sequences repaired by the decoder", "kind")
	m.InferenceDuration = collector.RegisterHistogram("inference_duration_seconds", "Per-chunk tagger latency", DefaultInferenceDurationBuckets, "status")
	m.NormalizerFallbacks = collector.RegisterCounter("normalizer_fallbacks_total", "Documents processed with the raw text because segmentation failed", "reason")

	m.SplitterRequestsTotal = collector.RegisterCounter("splitter_requests_total", "Patient splitting requests", "provider", "status")
	m.SplitterDuration = collector.RegisterHistogram("splitter_duration_seconds", "Patient splitting latency", DefaultLLMDurationBuckets, "provider")
	m.PatientsPerDocument = collector.RegisterHistogram("patients_per_document", "Patient segments found per document", DefaultPatientCountBuckets, "provider")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Queue messages handled", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Queue message handling duration", DefaultHTTPDurationBuckets, "topic")
	m.MessageRetriesTotal = collector.RegisterCounter("message_retries_total", "Queue message retries", "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────────────

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordSplit(metrics *AppMetrics, provider string, patients int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.SplitterRequestsTotal.WithLabelValues(provider, status).Inc()
	metrics.SplitterDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if err == nil {
		metrics.PatientsPerDocument.WithLabelValues(provider).Observe(float64(patients))
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordMessage(metrics *AppMetrics, topic string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.MessagesTotal.WithLabelValues(topic, status).Inc()
	metrics.MessageProcessDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline hooks
// ─────────────────────────────────────────────────────────────────────────────

// PipelineRecorder adapts AppMetrics to the hook set the decoding pipeline
// calls while it runs.
type PipelineRecorder struct {
	m *AppMetrics
}

// NewPipelineRecorder wraps m.
func NewPipelineRecorder(m *AppMetrics) *PipelineRecorder { return &PipelineRecorder{m: m} }

func (r *PipelineRecorder) ChunkPlanned(kind string) { r.m.ChunksTotal.WithLabelValues(kind).Inc() }

func (r *PipelineRecorder) InferenceDone(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.m.InferenceDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (r *PipelineRecorder) SoftFix(kind string) { r.m.SoftFixesTotal.WithLabelValues(kind).Inc() }

func (r *PipelineRecorder) LocatorMiss() { r.m.LocatorMissesTotal.WithLabelValues().Inc() }

func (r *PipelineRecorder) NormalizerFallback(reason string) {
	r.m.NormalizerFallbacks.WithLabelValues(reason).Inc()
}

func (r *PipelineRecorder) EntityEmitted(entityType string) {
	r.m.EntitiesTotal.WithLabelValues(entityType).Inc()
}

func (r *PipelineRecorder) DocumentDone(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.m.DocumentsTotal.WithLabelValues(status).Inc()
	r.m.DocumentDuration.WithLabelValues("decode").Observe(d.Seconds())
}

//Personal.AI order the ending
