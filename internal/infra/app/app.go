package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/config"
	"github.com/spiderlily190/cad/internal/infra/database"
	kafkainfra "github.com/spiderlily190/cad/internal/infra/kafka"
	"github.com/spiderlily190/cad/internal/infra/logger"
	"github.com/spiderlily190/cad/internal/infra/realtime"
	redisinfra "github.com/spiderlily190/cad/internal/infra/redis"
	"github.com/spiderlily190/cad/internal/infra/security"
	"github.com/spiderlily190/cad/internal/infra/storage"
	"github.com/spiderlily190/cad/internal/infra/telemetry"
	"github.com/spiderlily190/cad/internal/repository/memory"
	postgresrepo "github.com/spiderlily190/cad/internal/repository/postgres"
	redisrepo "github.com/spiderlily190/cad/internal/repository/redis"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/transport/http/routes"
	"github.com/spiderlily190/cad/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	consumer *kafkainfra.GroupRunner
	hub      *realtime.Hub
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	instanceID := uuid.NewString()

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry,
			telemetry.TracingIdentity{Env: cfg.App.Env, InstanceID: instanceID}, log)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.tracer = tp
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: registry,
		LongLived:  []string{routes.EventsPath},
	})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	eventMetrics, err := telemetry.NewEventMetrics(registry)
	if err != nil {
		return fmt.Errorf("init event metrics: %w", err)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	var (
		cadCache    port.CadCache
		rateLimiter *middleware.RateLimiter
	)
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		if err := client.RegisterPoolMetrics(registry); err != nil {
			return err
		}

		cadCache = redisrepo.NewCadCacheRepository(client.Client(), client.Key("cad", "config"))

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(client.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: client.Key("rate-limit"),
			TTL:       window * 2,
		})
		rateLimiter, err = middleware.NewRateLimiter(rateLimitStore, log).WithMetrics(registry)
		if err != nil {
			return err
		}
	} else {
		log.Info("redis disabled, cad cache and rate limiting are off")
	}

	a.hub = realtime.NewHub(realtime.Options{
		ClientBuffer: cfg.Realtime.ClientBuffer,
		PingInterval: cfg.Realtime.PingInterval,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		Metrics:      eventMetrics,
	}, log)

	sinks := []realtime.Sink{{Name: "websocket", Notifier: a.hub}}
	if cfg.Kafka.Enabled {
		if err := a.joinRelay(cfg.Kafka, instanceID, registry); err != nil {
			log.Warn("kafka relay unavailable, events stay on this instance", zap.Error(err))
		} else {
			sinks = append(sinks, realtime.Sink{
				Name:     "kafka",
				Notifier: kafkainfra.NewRelayPublisher(a.producer, instanceID, log),
			})
		}
	}
	events := realtime.NewFanoutNotifier(eventMetrics, log, sinks...)

	var images port.ImageStore
	if cfg.Storage.Enabled {
		imageStore, err := storage.NewImageStore(ctx, cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("init image storage: %w", err)
		}
		images = imageStore
	}

	tokens, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}
	var apiToken *security.APITokenVerifier
	if cfg.Auth.APIToken != "" {
		apiToken = security.NewAPITokenVerifier(cfg.Auth.APIToken)
	}

	cads := usecase.NewCadService(store.Cad(), cadCache, cfg.Cad.CacheTTL, log)

	deps := routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		RateLimiter:    rateLimiter,
		Authenticator:  middleware.NewAuthenticator(tokens, apiToken, log),
		Hub:            a.hub,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Services: routes.ServiceSet{
			Cad:      cads,
			Officers: usecase.NewOfficerService(store, events, images, log),
			Panic:    usecase.NewPanicService(store, events, log),
			Vehicles: usecase.NewVehicleService(store, events, log),
			Citizens: usecase.NewCitizenService(store, events, log),
			Impounds: usecase.NewImpoundService(store, events, log),
			Dispatch: usecase.NewDispatchService(store, events, cads, log),
			Calls:    usecase.NewCallService(store, events, log),
			Bleets:   usecase.NewBleetService(store, events, log),
			Admin:    usecase.NewAdminService(store.Stats()),
		},
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}

	a.engine = routes.Register(deps)
	return nil
}

// joinRelay connects this instance to the cross-instance event relay. A
// producer without a consumer still serves the other instances.
func (a *Application) joinRelay(cfg config.KafkaSettings, instanceID string, reg prometheus.Registerer) error {
	producer, err := kafkainfra.NewProducer(cfg, a.logger)
	if err != nil {
		return err
	}
	a.producer = producer
	if err := producer.WithMetrics(reg); err != nil {
		return err
	}

	runner, err := kafkainfra.NewGroupRunner(cfg, instanceID, kafkainfra.NewRelayConsumer(a.hub, instanceID, a.logger), a.logger)
	if err != nil {
		a.logger.Warn("kafka relay consumer unavailable, remote events are not received", zap.Error(err))
		return nil
	}
	a.consumer = runner
	return nil
}

// openStore selects the persistence backend. The memory store starts with a
// default CAD record so a fresh development instance is usable.
func (a *Application) openStore(ctx context.Context) (port.Store, error) {
	if a.cfg.App.Store == "memory" {
		a.logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		store.SetCad(domain.Cad{
			ID:              uuid.NewString(),
			Name:            a.cfg.App.Name,
			MiscCadSettings: domain.MiscCadSettings{ID: uuid.NewString()},
		})
		return store, nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool
	return postgresrepo.NewStore(pool), nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close(context.Background())

	if a.consumer != nil {
		go a.consumer.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting CAD API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.App.Store),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if a.hub != nil {
			a.hub.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases every backend that was opened, in reverse order of setup.
func (a *Application) close(ctx context.Context) {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("close kafka consumer", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
}
