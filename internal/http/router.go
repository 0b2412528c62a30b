package http

import (
	"log/slog"

	"github.com/geocoder89/tasklist/internal/http/handlers"
	"github.com/geocoder89/tasklist/internal/http/middlewares"
	"github.com/geocoder89/tasklist/internal/observability"
	"github.com/geocoder89/tasklist/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "tasklist-api"

type Deps struct {
	Log *slog.Logger
	Env string

	Authn    handlers.Authenticator
	Sessions interface {
		handlers.SessionManager
		middlewares.TokenVerifier
	}
	Tasks handlers.TaskService

	// nil disables login rate limiting
	LoginLimiter ratelimit.Limiter

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Tracing  bool

	Health         []handlers.Pinger
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// no proxy is trusted unless configured, ClientIP is then the socket peer
	_ = r.SetTrustedProxies(nil)

	// middleware
	r.Use(gin.Recovery())
	if d.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Health...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authHandler := handlers.NewAuthHandler(d.Authn, d.Sessions, log, handlers.AuthHandlerOptions{
		SecureCookie: d.Env == "prod",
		ObserveLogin: d.Prom.ObserveLogin,
	})
	gate := middlewares.NewAuthMiddleware(d.Sessions, log)

	login := []gin.HandlerFunc{authHandler.Login}
	register := []gin.HandlerFunc{authHandler.Register}

	if d.LoginLimiter != nil {
		limiter := middlewares.NewRateLimiter(d.LoginLimiter, log, d.Prom.ObserveRateLimited)
		byIP := limiter.Middleware(middlewares.KeyByIP)

		login = append([]gin.HandlerFunc{byIP}, login...)
		register = append([]gin.HandlerFunc{byIP}, register...)
	}

	r.POST("/login", login...)
	r.POST("/register", register...)
	r.POST("/logout", authHandler.Logout)

	// everything below requires a valid session
	authed := r.Group("/")
	authed.Use(gate.RequireAuth())

	authed.GET("/me", authHandler.Me)

	tasksHandler := handlers.NewTasksHandler(d.Tasks, log)
	authed.GET("/tasks", tasksHandler.List)
	authed.POST("/tasks", tasksHandler.Create)
	authed.PUT("/tasks", tasksHandler.Update)
	authed.DELETE("/tasks", tasksHandler.Delete)

	return r
}
