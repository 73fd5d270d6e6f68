package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestNewAppMetrics_AllRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.DocumentsTotal)
	assert.NotNil(t, m.ChunksTotal)
	assert.NotNil(t, m.EntitiesTotal)
	assert.NotNil(t, m.LocatorMissesTotal)
	assert.NotNil(t, m.SplitterRequestsTotal)
	assert.NotNil(t, m.MessagesTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestNewAppMetrics_TwiceOnSameCollector(t *testing.T) {
	c := newTestCollector(t)
	assert.NotPanics(t, func() {
		NewAppMetrics(c)
		NewAppMetrics(c)
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/ner/predict", 200, 120*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/ner/predict",status_code="200"} 1`)
	assert.Contains(t, out, "test_unit_http_request_duration_seconds_bucket")
}

func TestRecordSplit(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordSplit(m, "llm", 3, time.Second, nil)
	RecordSplit(m, "llm", 0, time.Second, errors.New("quota"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_splitter_requests_total{provider="llm",status="success"} 1`)
	assert.Contains(t, out, `test_unit_splitter_requests_total{provider="llm",status="failure"} 1`)
	assert.Contains(t, out, `test_unit_patients_per_document_count{provider="llm"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "segmentation", true)
	RecordCacheAccess(m, "segmentation", false)
	RecordCacheAccess(m, "segmentation", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="segmentation"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="segmentation"} 2`)
}

func TestRecordMessageAndError(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordMessage(m, "medrec.documents.extract", 10*time.Millisecond, errors.New("x"))
	RecordError(m, "worker", "AI_002")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_messages_total{status="failure",topic="medrec.documents.extract"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{code="AI_002",component="worker"} 1`)
}

func TestPipelineRecorder(t *testing.T) {
	m, c := newTestAppMetrics(t)
	r := NewPipelineRecorder(m)

	r.ChunkPlanned("batch")
	r.ChunkPlanned("window")
	r.InferenceDone(30*time.Millisecond, nil)
	r.SoftFix("orphan_inside")
	r.LocatorMiss()
	r.NormalizerFallback("unavailable")
	r.EntityEmitted("NAME")
	r.DocumentDone(time.Second, nil)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_chunks_total{kind="batch"} 1`)
	assert.Contains(t, out, `test_unit_tag_soft_fixes_total{kind="orphan_inside"} 1`)
	assert.Contains(t, out, "test_unit_locator_misses_total 1")
	assert.Contains(t, out, `test_unit_entities_total{type="NAME"} 1`)
	assert.Contains(t, out, `test_unit_documents_total{status="success"} 1`)
	assert.Contains(t, out, `test_unit_normalizer_fallbacks_total{reason="unavailable"} 1`)
}

//Personal.AI order the ending
