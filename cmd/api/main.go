package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/paraiso-astral/gate-service/internal/api/http"
	"github.com/paraiso-astral/gate-service/internal/api/http/handlers"
	"github.com/paraiso-astral/gate-service/internal/auth"
	"github.com/paraiso-astral/gate-service/internal/config"
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/observability"
	"github.com/paraiso-astral/gate-service/internal/payload"
	"github.com/paraiso-astral/gate-service/internal/persistence"
	"github.com/paraiso-astral/gate-service/internal/repository"
	"github.com/paraiso-astral/gate-service/internal/security"
	"github.com/paraiso-astral/gate-service/internal/service"
	"github.com/paraiso-astral/gate-service/internal/validation"
	"github.com/paraiso-astral/gate-service/internal/worker"
	"github.com/paraiso-astral/gate-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required: tickets and operators live in postgres")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	engine, err := security.NewEngine([]byte(cfg.Ticket.SigningSecret))
	if err != nil {
		logger.Fatal("invalid signing secret", zap.Error(err))
	}
	codec := payload.New(cfg.Ticket.Issuer, cfg.Ticket.Versions...)

	ticketRepo := repository.NewTicketRepository(pool)
	operatorRepo := repository.NewOperatorRepository(pool)

	var blacklistStore validation.BlacklistStore
	if redis.Client != nil {
		blacklistStore = repository.NewBlacklistRepository(redis.Client, cfg.Redis.BlacklistKey)
	}
	blacklist := validation.NewBlacklist(blacklistStore)

	dispatcher := events.NewInMemoryDispatcher()

	pipeline := service.NewValidationPipeline(*cfg, service.PipelineDependencies{
		Codec:      codec,
		Engine:     engine,
		Blacklist:  blacklist,
		Store:      ticketRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Issuer:     service.NewTicketIssuer(codec, engine, cfg.Ticket.SerialPrefix),
		TicketRepo: ticketRepo,
		Pipeline:   pipeline,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(*cfg, operatorRepo, tokens)

	var sink *events.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err = events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("failed to init kafka sink", zap.Error(err))
		}
	}
	worker.StartEventSubscribers(dispatcher, service.NewAuditService(dispatcher, logger), sink)

	if blacklistStore != nil {
		go worker.NewBlacklistRefresher(blacklist, cfg.Validation.BlacklistRefresh, logger).Run(ctx)
	}
	go worker.NewHistoryPruner(pipeline.HistoryLog(), cfg.Validation.HistoryRetention, logger).Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterMetricsEndpoint(app, registry)

	deps := map[string]handlers.Pinger{"postgres": pg, "redis": nil}
	if redis.Client != nil {
		deps["redis"] = redis
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Validation:     handlers.NewValidationHandler(pipeline),
		Operators:      handlers.NewOperatorsHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, operatorRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.ShutdownWithTimeout(10 * time.Second)
	if sink != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sink.Close(flushCtx); err != nil {
			logger.Warn("kafka flush failed", zap.Error(err))
		}
		flushCancel()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
