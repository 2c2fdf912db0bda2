package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/fitchallenge/internal/api"
	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/cache"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/config"
	"example.com/fitchallenge/internal/consumer"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/observability"
	"example.com/fitchallenge/internal/outbox"
	persistence "example.com/fitchallenge/internal/persistence/postgres"
	"example.com/fitchallenge/internal/scoring"
	httptransport "example.com/fitchallenge/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		checks     []httptransport.Check
		background sync.WaitGroup
	)
	storeOpts := []ledger.Option{ledger.WithLogger(logger)}

	var repo *persistence.Repository
	if cfg.Persistent() {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		checks = append(checks, pool.Ping)

		repo = persistence.NewRepository(pool, logger)
		storeOpts = append(storeOpts, ledger.WithJournal(repo))

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(logger))
		go dispatcher.Start(ctx)
		defer dispatcher.Wait()
	} else {
		logger.Warn("POSTGRES_URL not set, ledger is in memory only")
	}

	store := ledger.NewStore(storeOpts...)
	if repo != nil {
		if err := store.Load(ctx, repo); err != nil {
			logger.Fatal("load ledger", zap.Error(err))
		}
	}

	scorer, err := scoring.New(cfg.ScoringMode(), scoring.DefaultRules(), store)
	if err != nil {
		logger.Fatal("build scorer", zap.Error(err))
	}

	serviceOpts := []challenge.Option{challenge.WithLogger(logger), challenge.WithEpoch(cfg.Epoch())}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		checks = append(checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		serviceOpts = append(serviceOpts, challenge.WithReportCache(cache.NewRedisReportCache(client, "fitchallenge:reports", cfg.ReportCacheTTL)))
	}
	service := challenge.NewService(store, scorer, serviceOpts...)

	if cfg.IngestEnabled {
		background.Add(1)
		go func() {
			defer background.Done()
			consumer.RunGroup(ctx, consumer.GroupConfig{
				Brokers: cfg.KafkaBrokers,
				GroupID: cfg.ConsumerGroupID,
				Topics:  cfg.ConsumerTopics,
			}, consumer.NewSubmissionHandler(service, logger), logger)
		}()
	}

	mux := http.NewServeMux()
	api.NewHandler(service, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/readyz", httptransport.Readiness(2*time.Second, checks...))

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	limiter := httptransport.NewRateLimiter(cfg.RateLimitPerMinute, httptransport.WithRateLimitMatch(httptransport.ActivitySubmissions))

	handler := httptransport.Chain(mux,
		httptransport.RequestLogger(logger),
		httptransport.CORS(cfg.CORSOrigin),
		authMiddleware.Wrap,
		limiter.Middleware,
	)

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, handler)

	logger.Info("challenge api starting",
		zap.String("mode", string(cfg.ScoringMode())),
		zap.Bool("persistent", cfg.Persistent()),
		zap.Bool("ingest", cfg.IngestEnabled),
	)
	if err := httptransport.Serve(ctx, server, serverCfg.ShutdownTimeout, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		stop()
	}
	background.Wait()
}
