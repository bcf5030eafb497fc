package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	HTTP *http.Server
}

// Options configures the server. Zero timeouts keep the defaults.
type Options struct {
	Addr         string
	Router       chi.Router
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func New(opts Options) *Server {
	if opts.Router == nil {
		opts.Router = chi.NewRouter()
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           opts.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       orDefault(opts.ReadTimeout, 15*time.Second),
		// Detail pages may wait on two upstream calls on a cache miss.
		WriteTimeout: orDefault(opts.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(opts.IdleTimeout, 60*time.Second),
	}
	return &Server{HTTP: srv}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start listens on the configured address and blocks until the server stops.
// A graceful shutdown returns nil.
func (s *Server) Start(log *zap.Logger) error {
	lis, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return err
	}
	return s.Serve(lis, log)
}

func (s *Server) Serve(lis net.Listener, log *zap.Logger) error {
	log.Info("http server starting", zap.String("addr", lis.Addr().String()))
	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
