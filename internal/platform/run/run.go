package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: 10 * time.Second}
}

// WithSignals runs start until it returns or SIGINT/SIGTERM arrives, then
// calls shutdown with a bounded context. It returns a process exit code.
func (r *Runner) WithSignals(start func(ctx context.Context) error, shutdown func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, start, shutdown)
}

func (r *Runner) run(ctx context.Context, start func(ctx context.Context) error, shutdown func(ctx context.Context) error) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	code := 0
	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			r.Logger.Error("service exited with error", zap.Error(err))
			code = 1
		}
	}

	if shutdown != nil {
		sctx, cancel := context.WithTimeout(context.Background(), r.ShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			r.Logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}
	return code
}

func Exit(code int) {
	os.Exit(code)
}
