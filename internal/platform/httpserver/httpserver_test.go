package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Defaults(t *testing.T) {
	s := New(Options{Addr: ":0", WriteTimeout: time.Minute})
	assert.Equal(t, 15*time.Second, s.HTTP.ReadTimeout)
	assert.Equal(t, time.Minute, s.HTTP.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.HTTP.IdleTimeout)
	assert.NotNil(t, s.HTTP.Handler)
}

func TestServeAndShutdown(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
	s := New(Options{Router: r})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve(lis, zap.NewNop()) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err, "graceful shutdown must not surface ErrServerClosed")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
