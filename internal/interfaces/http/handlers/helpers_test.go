package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockService is a mock implementation of extraction.Service.
type mockService struct {
	mock.Mock
}

func (m *mockService) Predict(ctx context.Context, input *extraction.PredictInput) (*extraction.PredictResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.PredictResult), args.Error(1)
}

func (m *mockService) ExtractManual(ctx context.Context, input *extraction.ExtractInput) (*extraction.ManualResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.ManualResult), args.Error(1)
}

func (m *mockService) ExtractAuto(ctx context.Context, input *extraction.ExtractInput) (*extraction.AutoResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.AutoResult), args.Error(1)
}

func (m *mockService) Split(ctx context.Context, input *extraction.ExtractInput) (*extraction.SplitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.SplitResult), args.Error(1)
}

func (m *mockService) Health(ctx context.Context) *extraction.Health {
	return m.Called(ctx).Get(0).(*extraction.Health)
}

func doRequest(h gin.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, "/", h)
	req := httptest.NewRequest(method, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveBody(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(h gin.HandlerFunc) *httptest.ResponseRecorder {
	return doRequest(h, http.MethodGet, "")
}

//Personal.AI order the ending
