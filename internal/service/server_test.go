package service

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"medig/internal/config"
)

func TestWriteTimeout_CoversAIRetries(t *testing.T) {
	assert.Equal(t, 150*time.Second, writeTimeout(config.AIConfig{Timeout: 60 * time.Second, RetryCount: 1}))
	assert.Equal(t, 40*time.Second, writeTimeout(config.AIConfig{Timeout: 10 * time.Second}))
	assert.Equal(t, 40*time.Second, writeTimeout(config.AIConfig{Timeout: 10 * time.Second, RetryCount: -3}))
}

func TestServer_ServeAndStop(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := &config.Config{}
	cfg.AI.Timeout = time.Second

	srv := NewServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}), zap.New(core))
	assert.Empty(t, srv.Addr())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, ln.Addr().String(), srv.Addr())

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, <-done)

	started := logs.FilterMessage("Starting medig HTTP server").All()
	require.Len(t, started, 1)
	assert.Equal(t, 31*time.Second, started[0].ContextMap()["write_timeout"])
}
