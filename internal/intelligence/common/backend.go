package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

var (
	ErrBackendClosed  = errors.New(errors.ErrCodeAIModelNotAvailable, "model backend closed")
	ErrModelNotLoaded = errors.New(errors.ErrCodeAIModelNotAvailable, "model not loaded")
)

// HTTPBackendConfig points at a JSON model server exposing
//
//	POST {endpoint}/v1/models/{name}:predict   {"tokens": [...]}
//	GET  {endpoint}/v1/models/{name}
type HTTPBackendConfig struct {
	Endpoint string
	Model    string
	Version  string
	Timeout  time.Duration
}

// HTTPBackend implements ModelBackend over JSON HTTP.
type HTTPBackend struct {
	cfg    HTTPBackendConfig
	client *http.Client
	logger logging.Logger
	closed atomic.Bool
}

// NewHTTPBackend creates an HTTPBackend. httpClient may be nil.
func NewHTTPBackend(cfg HTTPBackendConfig, httpClient *http.Client, logger logging.Logger) (*HTTPBackend, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "model endpoint cannot be empty")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrCodeValidation, "model name cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HTTPBackend{cfg: cfg, client: httpClient, logger: logger.Named("model.backend")}, nil
}

func (b *HTTPBackend) modelURL() string {
	return fmt.Sprintf("%s/v1/models/%s", b.cfg.Endpoint, b.cfg.Model)
}

// Predict posts the request tokens and collects whichever of the
// probabilities, labels and scores outputs the server returned.
func (b *HTTPBackend) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	version := req.ModelVersion
	if version == "" {
		version = b.cfg.Version
	}
	body, err := json.Marshal(map[string]interface{}{
		"tokens":        json.RawMessage(req.InputData),
		"model_version": version,
		"metadata":      req.Metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode predict request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.modelURL()+":predict", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "build predict request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "model inference cancelled")
		}
		return nil, errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "model server unreachable").WithDetail(b.cfg.Endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "read predict response")
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrModelNotLoaded.WithDetail(fmt.Sprintf("HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.New(errors.ErrCodeAIInferenceFailed, msg).WithDetail(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodeAIInferenceFailed, "model server returned invalid JSON")
	}

	out := &PredictResponse{
		ModelName:       b.cfg.Model,
		ModelVersion:    gjson.GetBytes(data, "model_version").String(),
		Outputs:         make(map[string][]byte, 3),
		InferenceTimeMs: time.Since(start).Milliseconds(),
	}
	for _, key := range []string{OutputProbabilities, OutputLabels, OutputScores} {
		if r := gjson.GetBytes(data, key); r.Exists() && r.IsArray() {
			out.Outputs[key] = []byte(r.Raw)
		}
	}
	if len(out.Outputs) == 0 {
		return nil, errors.New(errors.ErrCodeAIInferenceFailed, "model response has neither probabilities nor labels")
	}

	b.logger.Debug("inference completed",
		logging.String("model", b.cfg.Model),
		logging.Int64("latency_ms", out.InferenceTimeMs))
	return out, nil
}

// Healthy reports whether the server answers for the configured model. A
// body with "ready": false counts as unhealthy.
func (b *HTTPBackend) Healthy(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.modelURL(), nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "build health request")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "model server unreachable")
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ErrModelNotLoaded.WithDetail(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if r := gjson.GetBytes(data, "ready"); r.Exists() && !r.Bool() {
		return ErrModelNotLoaded
	}
	return nil
}

func (b *HTTPBackend) Close() error {
	b.closed.Store(true)
	return nil
}

// MockBackend is a ModelBackend driven by function fields.
type MockBackend struct {
	PredictFunc func(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	HealthyFunc func(ctx context.Context) error
	calls       atomic.Int64
}

func (m *MockBackend) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	m.calls.Add(1)
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, req)
	}
	return &PredictResponse{ModelName: req.ModelName, Outputs: map[string][]byte{}}, nil
}

func (m *MockBackend) Healthy(ctx context.Context) error {
	if m.HealthyFunc != nil {
		return m.HealthyFunc(ctx)
	}
	return nil
}

func (m *MockBackend) Close() error { return nil }

// Calls returns how many times Predict ran.
func (m *MockBackend) Calls() int64 { return m.calls.Load() }

//Personal.AI order the ending
