package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/config"
	"github.com/spiderlily190/cad/internal/infra/realtime"
	"github.com/spiderlily190/cad/internal/transport/http/handlers"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// EventsPath is where the realtime websocket endpoint is mounted.
const EventsPath = "/api/v1/ws"

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Cad      *usecase.CadService
	Officers *usecase.OfficerService
	Panic    *usecase.PanicService
	Vehicles *usecase.VehicleService
	Citizens *usecase.CitizenService
	Impounds *usecase.ImpoundService
	Dispatch *usecase.DispatchService
	Calls    *usecase.CallService
	Bleets   *usecase.BleetService
	Admin    *usecase.AdminService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	RateLimiter    *middleware.RateLimiter
	Authenticator  *middleware.Authenticator
	Services       ServiceSet
	Hub            *realtime.Hub
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsHandler http.Handler
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	serviceName := deps.Config.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = "cad-api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName, otelgin.WithFilter(skipProbes)))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger, "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	r.Use(deps.HTTPMetrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	if deps.Authenticator == nil {
		return r
	}

	api := r.Group("/api/v1")
	api.Use(deps.Authenticator.RequireAuth())
	api.Use(buildMutationLimits(deps)...)
	{
		svc := deps.Services
		loadCad := middleware.LoadCad(svc.Cad, deps.Logger)

		leo := api.Group("/leo", loadCad)
		handlers.NewLeoHandler(svc.Officers, svc.Panic, svc.Vehicles, svc.Citizens, svc.Impounds).RegisterRoutes(leo)

		handlers.NewVehicleHandler(svc.Vehicles).RegisterRoutes(api.Group("/vehicles"))
		handlers.NewDispatchHandler(svc.Dispatch).RegisterRoutes(api.Group("/dispatch", loadCad))
		handlers.NewCallHandler(svc.Calls).RegisterRoutes(api.Group("/911-calls", loadCad))
		handlers.NewBleeterHandler(svc.Bleets).RegisterRoutes(api.Group("/bleeter", loadCad))
		handlers.NewAdminHandler(svc.Admin).RegisterRoutes(api.Group("/admin"))

		if deps.Hub != nil {
			handlers.NewEventsHandler(deps.Hub, deps.Config.App.AllowedOrigins).RegisterRoutes(api.Group("/ws"))
		}
	}

	return r
}

// buildMutationLimits caps write requests per user, with a tighter rule for the panic button.
func buildMutationLimits(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rules := make([]middleware.RateLimitRule, 0, 2)
	if limit := deps.Config.RateLimit.MutationMaxPerUser; limit > 0 {
		rules = append(rules, middleware.RateLimitRule{
			Name:       "mutations_user",
			Limit:      limit,
			Window:     window,
			Identifier: middleware.MutationsOnly(middleware.ActorIdentifier()),
		})
	}
	if limit := deps.Config.RateLimit.PanicMaxPerUser; limit > 0 {
		rules = append(rules, middleware.RateLimitRule{
			Name:       "panic_user",
			Limit:      limit,
			Window:     window,
			Identifier: panicButtonOnly(middleware.ActorIdentifier()),
		})
	}
	if len(rules) == 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rules...)}
}

// skipProbes keeps health and scrape traffic out of traces.
func skipProbes(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

func panicButtonOnly(next middleware.IdentifierFunc) middleware.IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != "/api/v1/leo/panic-button" {
			return "", false
		}
		return next(c)
	}
}
