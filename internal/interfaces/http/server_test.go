package http

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewServer_Addr(t *testing.T) {
	s := NewServer(config.ServerConfig{Host: "0.0.0.0", Port: 8080}, http.NotFoundHandler(), nil)
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
	assert.NotNil(t, s.Handler())
	assert.Equal(t, 15*time.Second, s.shutdownTimeout)
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	router := newTestRouter(t, nil)
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: port, ShutdownTimeout: time.Second}, router, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	url := "http://" + s.Addr() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: port}, http.NotFoundHandler(), nil)
	assert.Error(t, s.Start())
}

//Personal.AI order the ending
