package router

import (
	"time"

	"github.com/fiado/backend/internal/infrastructure/auth"
	"github.com/fiado/backend/internal/infrastructure/config"
	"github.com/fiado/backend/internal/infrastructure/logger"
	"github.com/fiado/backend/internal/interfaces/http/handler"
	"github.com/fiado/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig carries everything the HTTP engine is assembled from
type EngineConfig struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	Profiling   bool
	Meter       metric.Meter
	RateLimiter *middleware.RateLimiter
	JWTService  *auth.JWTService
	System      *handler.SystemHandler
	Credit      CreditHandlers
}

// NewEngine builds the gin engine with the middleware chain and every route.
//
// Order: request id, panic recovery, request logging, security headers, CORS,
// body limit, rate limit, tracing, metrics, profiling. The JWT check runs on
// the credit group only.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Ignoring invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.Tracing {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(middleware.Profiling(cfg.Profiling, "/health"))

	system := cfg.System
	if system == nil {
		system = handler.NewSystemHandler("dev")
	}
	engine.GET("/health", system.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: cfg.JWTService,
		Logger:     log,
	}))
	if cfg.Tracing {
		r.Use(middleware.TracingAttributeInjector())
	}
	r.Register(NewCreditRoutes(cfg.Credit))
	api := r.Setup()
	api.GET("/ping", system.Ping)

	return engine
}

func corsConfig(httpCfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(httpCfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = httpCfg.CORSAllowOrigins
	}
	if len(httpCfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = httpCfg.CORSAllowMethods
	}
	if len(httpCfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = httpCfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}
