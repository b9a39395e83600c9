package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcserver "review_store/internal/adapters/grpc_server"
	server "review_store/internal/adapters/http_server"
	"review_store/internal/adapters/observability"
	redisad "review_store/internal/adapters/redis"
	"review_store/internal/app"
	"review_store/internal/domain"
	"review_store/internal/shared"
	"review_store/internal/storage"
	"review_store/internal/storage/memory"
	mysqlrepo "review_store/internal/storage/mysql"
	pgrepo "review_store/internal/storage/postgres"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// storage
	repo, closeRepo, err := openRepo(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Driver).Msg("open storage failed")
	}
	defer closeRepo()
	log.Info().Str("driver", cfg.Driver).Msg("storage ready")

	// cache
	var cache domain.Cache
	if cfg.Redis.Addr != "" {
		rc := redisad.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, caching disabled")
			_ = rc.Close()
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	svc := app.NewReviewService(repo, cache, cfg.CacheTTL(), cfg.ScoreMax)

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	// grpc
	grpcSrv := grpcserver.NewServer(svc, log.Logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen failed")
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC listening")
		return grpcSrv.Serve(lis)
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() { grpcSrv.GracefulStop(); close(done) }()
		select {
		case <-done:
		case <-sctx.Done():
			grpcSrv.Stop()
		}
		return httpSrv.Shutdown(sctx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("bye")
}

func openRepo(ctx context.Context, cfg shared.Config) (domain.ReviewRepository, func(), error) {
	switch cfg.Driver {
	case shared.DriverMySQL:
		db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN, cfg.MaxConns, cfg.MaxIdleTime)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument(cfg.Driver, mysqlrepo.New(db)), closer(db), nil
	case shared.DriverMemory:
		return storage.Instrument(cfg.Driver, memory.New()), func() {}, nil
	default:
		pool, err := pgrepo.Open(ctx, cfg.Postgres.URL, int32(cfg.MaxConns), cfg.MaxIdleTime)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument(cfg.Driver, pgrepo.New(pool)), pool.Close, nil
	}
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("close storage")
		}
	}
}
