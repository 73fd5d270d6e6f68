package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 60 * time.Second}
	c := &Client{}
	WithHTTPClient(custom)(c)
	assert.Same(t, custom, c.httpClient)

	WithHTTPClient(nil)(c)
	assert.Same(t, custom, c.httpClient)
}

func TestWithTimeout(t *testing.T) {
	c := &Client{httpClient: &http.Client{Timeout: time.Second}}
	WithTimeout(5 * time.Second)(c)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)

	WithTimeout(0)(c)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestWithLogger(t *testing.T) {
	logger := &testLogger{}
	c := &Client{}
	WithLogger(logger)(c)
	assert.Equal(t, logger, c.logger)
}

func TestWithRetryMax(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"positive", 5, 5},
		{"zero disables retries", 0, 0},
		{"negative ignored", -1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{retryMax: 3}
			WithRetryMax(tt.input)(c)
			assert.Equal(t, tt.want, c.retryMax)
		})
	}
}

func TestWithRetryWait(t *testing.T) {
	tests := []struct {
		name    string
		min     time.Duration
		max     time.Duration
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"valid", 10 * time.Millisecond, time.Second, 10 * time.Millisecond, time.Second},
		{"max below min keeps max", 2 * time.Second, time.Second, 2 * time.Second, 5 * time.Second},
		{"non-positive min ignored", 0, time.Second, 500 * time.Millisecond, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{retryWaitMin: 500 * time.Millisecond, retryWaitMax: 5 * time.Second}
			WithRetryWait(tt.min, tt.max)(c)
			assert.Equal(t, tt.wantMin, c.retryWaitMin)
			assert.Equal(t, tt.wantMax, c.retryWaitMax)
		})
	}
}

func TestWithUserAgent(t *testing.T) {
	c := &Client{userAgent: "default"}
	WithUserAgent("")(c)
	assert.Equal(t, "default", c.userAgent)
	WithUserAgent("medrec-cli/1.0")(c)
	assert.Equal(t, "medrec-cli/1.0", c.userAgent)
}

func TestWithBearerToken(t *testing.T) {
	c := &Client{}
	WithBearerToken("t-1")(c)
	assert.Equal(t, "t-1", c.token)
}

//Personal.AI order the ending
