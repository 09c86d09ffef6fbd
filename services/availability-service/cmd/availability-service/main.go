package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/sitteravail/libs/db"
	"github.com/md-rashed-zaman/sitteravail/libs/httpx"
	"github.com/md-rashed-zaman/sitteravail/libs/kafkax"
	otelx "github.com/md-rashed-zaman/sitteravail/libs/otel"
	"github.com/md-rashed-zaman/sitteravail/libs/runtime"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/config"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	service := cfg.Otel.ServiceName
	logger := runtime.NewLogger(service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.Otel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	checks := []runtime.ReadyCheck{}
	var store storage.Store
	switch cfg.StorageBackend {
	case config.BackendMongo:
		m, err := storage.OpenMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			logger.Error("mongo connection failed", "err", err)
			panic(err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Close(closeCtx)
		}()
		checks = append(checks, runtime.ReadyCheck{Name: "mongo", Check: m.ReadyCheck})
		store = m
		logger.Info("storage backend ready", "backend", cfg.StorageBackend, "database", cfg.MongoDatabase)
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.DBMaxConns})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		applied, err := migrations.Up(ctx, pool)
		if err != nil {
			logger.Error("db migrations failed", "err", err)
			panic(err)
		}
		if len(applied) > 0 {
			logger.Info("db migrations applied", "versions", applied)
		}

		outboxRepo := outbox.NewRepository()
		store = storage.NewPostgres(pool, outboxRepo)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: cfg.OutboxPollInterval,
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
		if len(cfg.Brokers()) > 0 {
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Brokers())})
		}
		logger.Info("storage backend ready", "backend", cfg.StorageBackend)
	}

	var limiter httpx.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMin, time.Minute, "rl:availability")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		limiter = httpx.NewLocalRateLimiter(cfg.RateLimitPerMin, time.Minute)
	}

	rules, err := cfg.Rules()
	if err != nil {
		panic(err)
	}
	coordinator := availability.New(store, rules, logger, cfg.Coordinator())

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.NewAvailabilityHandler(coordinator, logger).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.RateLimit(limiter, httpx.ProviderOrClientKey, logger, true),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	if err := runtime.Shutdown(10*time.Second, srv.Shutdown, otelShutdown); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
