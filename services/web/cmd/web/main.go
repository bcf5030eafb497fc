package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/config"
	"github.com/example/animehub/internal/platform/db"
	"github.com/example/animehub/internal/platform/grpchealth"
	"github.com/example/animehub/internal/platform/httpserver"
	"github.com/example/animehub/internal/platform/logging"
	"github.com/example/animehub/internal/platform/migrate"
	"github.com/example/animehub/internal/platform/natsconn"
	"github.com/example/animehub/internal/platform/run"
	"github.com/example/animehub/services/web/internal/accounts"
	"github.com/example/animehub/services/web/internal/catalog"
	webconfig "github.com/example/animehub/services/web/internal/config"
	"github.com/example/animehub/services/web/internal/handlers"
	"github.com/example/animehub/services/web/internal/jikan"
	"github.com/example/animehub/services/web/internal/reactions"
	"github.com/example/animehub/services/web/internal/session"
	"github.com/example/animehub/services/web/internal/store"
	"github.com/example/animehub/services/web/internal/views"
	"github.com/example/animehub/services/web/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	wcfg, err := webconfig.LoadWeb()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	stores, err := initStores(cfg, log)
	if err != nil {
		log.Error("stores", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	revocations, closeRevocations := initRevocations(cfg, log)
	if closeRevocations != nil {
		defer closeRevocations()
	}
	sessions, err := session.NewManager([]byte(wcfg.SessionSecret), wcfg.SessionTTL, wcfg.SecureCookies, revocations)
	if err != nil {
		log.Error("session manager", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	// Analytics are optional: without NATS every publish is a no-op.
	var events *analytics.Publisher
	if cfg.NATSURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName})
		if err != nil {
			log.Warn("nats unavailable, analytics disabled", zap.Error(err))
		} else {
			defer nc.Close()
			events = analytics.FromConn(nc, log)
		}
	}

	var clientOpts []jikan.Option
	if st := wcfg.BreakerSettings(func(name string, from, to gobreaker.State) {
		log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
	}); st != nil {
		clientOpts = append(clientOpts, jikan.WithCircuitBreaker(gobreaker.NewCircuitBreaker(*st)))
	}
	client := jikan.New(wcfg.JikanBaseURL, wcfg.JikanTimeout, clientOpts...)
	client.UserAgent = wcfg.JikanUserAgent

	renderer, err := views.New(wcfg.AffiliateCrunchyroll)
	if err != nil {
		log.Error("templates", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	site := &handlers.Site{
		Catalog:   catalog.NewService(client, stores, log),
		Reactions: reactions.NewEngine(stores, events, log),
		Accounts:  accounts.NewService(stores.Users, events, log),
		Comments:  stores.Comments,
		Sessions:  sessions,
		Views:     renderer,
		Events:    events,
		Log:       log,
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return stores.Ping(ctx)
		},
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      log,
		MetricsPath: "/metrics",
	})
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware())
		handlers.Routes(r, site, handlers.RouteOptions{
			AuthRateLimit:  wcfg.AuthRateLimit,
			AuthRateWindow: wcfg.AuthRateWindow,
		})
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Router: r})

	var health *grpchealth.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Error("grpc listen", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		health = grpchealth.New(cfg.ServiceName)
		go func() {
			if err := health.Serve(lis, log); err != nil {
				log.Error("grpc serve", zap.Error(err))
			}
		}()
	}

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if health != nil {
			go watchReadiness(ctx, health, stores, log)
		}
		return srv.Start(log)
	}, func(ctx context.Context) error {
		if health != nil {
			health.Stop()
		}
		err := srv.Shutdown(ctx)
		stores.Close()
		return err
	})

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

// initStores selects the store backend. Production requires Postgres.
func initStores(cfg config.AppConfig, log *zap.Logger) (store.Stores, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return store.Stores{}, errors.New("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		return store.NewMemory(), nil
	}

	if err := migrate.Up(cfg.DatabaseURL, migrations.FS, ".", log); err != nil {
		return store.Stores{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return store.Stores{}, err
	}
	log.Info("using postgres stores")
	return store.NewPostgres(pool), nil
}

// initRevocations uses Redis when configured so logouts hold across
// instances; otherwise revocations live in this process.
func initRevocations(cfg config.AppConfig, log *zap.Logger) (session.Revocations, func()) {
	if cfg.RedisURL == "" {
		if cfg.IsProduction() {
			log.Warn("REDIS_URL not set, session revocations are per-process")
		}
		return session.NewMemoryRevocations(), nil
	}
	rr, err := session.NewRedisRevocations(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory revocations", zap.Error(err))
		return session.NewMemoryRevocations(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rr.Ping(ctx); err != nil {
		log.Warn("redis unreachable at startup", zap.Error(err))
	}
	return rr, func() { _ = rr.Close() }
}

// watchReadiness mirrors store reachability into the gRPC health status.
func watchReadiness(ctx context.Context, health *grpchealth.Server, stores store.Stores, log *zap.Logger) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := stores.Ping(pctx)
		if err != nil && ctx.Err() == nil {
			log.Warn("readiness check failed", zap.Error(err))
		}
		health.SetServing(err == nil)
	}
	check()
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}
