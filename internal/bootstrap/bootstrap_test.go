package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/splitter"
)

// fakeModelServer tags every token O and counts predict calls.
func fakeModelServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"ready":true}`))
		case strings.HasSuffix(r.URL.Path, ":predict"):
			atomic.AddInt32(calls, 1)
			var body struct {
				Tokens []string `json:"tokens"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			labels := make([]string, len(body.Tokens))
			for i := range labels {
				labels[i] = "O"
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"labels": labels})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(modelURL string) *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Model.Endpoint = modelURL
	cfg.Normalizer.Provider = "identity"
	cfg.Splitter.Provider = "heuristic"
	return cfg
}

func TestBuild_EndToEnd(t *testing.T) {
	var calls int32
	srv := fakeModelServer(t, &calls)

	c, err := Build(context.Background(), testConfig(srv.URL), nil, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Redis)
	assert.IsType(t, &splitter.Heuristic{}, c.Splitter)

	h := c.Service.Health(context.Background())
	assert.Equal(t, extraction.StatusOnline, h.Status)
	assert.True(t, h.ModelLoaded)
	assert.True(t, h.NormalizerAvailable)
	assert.Equal(t, "heuristic", h.SplitterProvider)

	res, err := c.Service.ExtractManual(context.Background(), &extraction.ExtractInput{Text: "Bệnh nhân 45 tuổi, sốt cao."})
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
	assert.NotNil(t, res.Record)
	assert.Positive(t, atomic.LoadInt32(&calls))
}

func TestBuild_WithRedisAndMetrics(t *testing.T) {
	var calls int32
	srv := fakeModelServer(t, &calls)
	mr := miniredis.RunT(t)

	cfg := testConfig(srv.URL)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "boot"}, nil)
	require.NoError(t, err)

	c, err := Build(context.Background(), cfg, nil, prometheus.NewAppMetrics(collector))
	require.NoError(t, err)
	require.NotNil(t, c.Redis)
	require.NoError(t, c.Redis.Ping(context.Background()))

	require.NoError(t, c.Close())
	assert.Error(t, c.Redis.Ping(context.Background()))
}

func TestBuild_Errors(t *testing.T) {
	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := testConfig("http://127.0.0.1:1")
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
		_, err := Build(context.Background(), cfg, nil, nil)
		assert.Error(t, err)
	})

	t.Run("missing codes file", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Model.CodesPath = t.TempDir() + "/missing.codes"
		_, err := Build(context.Background(), cfg, nil, nil)
		assert.Error(t, err)
	})

	t.Run("unknown splitter", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Splitter.Provider = "oracle"
		_, err := Build(context.Background(), cfg, nil, nil)
		assert.Error(t, err)
	})
}

//Personal.AI order the ending
