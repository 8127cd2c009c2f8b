package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/pkg/httputil"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// PublicHandler registers routes that never require a token
type PublicHandler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handler registers routes and guards them with the auth middleware as needed
type Handler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	HSTS           bool
	CORSConfig     middleware.CORSConfig
	// RateLimit is nil when rate limiting is disabled
	RateLimit *middleware.RateLimiterConfig
	// MetricsPath is empty when the scrape endpoint is disabled
	MetricsPath string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	authH    PublicHandler
	handlers []Handler
	health   *health.Handler
	prom     *prometheus.Handler
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH PublicHandler,
	healthH *health.Handler,
	prom *prometheus.Handler,
	m *metrics.Metrics,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	engine := gin.New()
	engine.NoRoute(httputil.NotFound)

	r := &Router{
		engine:   engine,
		auth:     auth,
		authH:    authH,
		handlers: handlers,
		health:   healthH,
		prom:     prom,
		config:   config,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(
		middleware.SecurityHeaders(config.HSTS),
		middleware.CORS(config.CORSConfig),
	)
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}
	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}
	engine.Use(middleware.ErrorHandler())

	return r
}

func (r *Router) Setup() {
	if r.prom != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.prom.Handler())
	}

	api := r.engine.Group("/api/v1")

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	r.authH.RegisterRoutes(api)
	for _, h := range r.handlers {
		h.RegisterRoutes(api, r.auth)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
