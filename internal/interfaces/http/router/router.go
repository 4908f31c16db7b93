package router

import (
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/auth"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/logger"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// EngineConfig selects the middleware of the HTTP engine.
type EngineConfig struct {
	Logger         *zap.Logger
	Meter          metric.Meter
	Verifier       *auth.Verifier
	AuthRequired   bool
	MaxBodySize    int64
	TrustedProxies []string
	// HealthPath is served without an actor and outside the API prefix.
	HealthPath string
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, request id, request logging, metrics, body limit and actor
// resolution, in that order.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	var skip []string
	if cfg.HealthPath != "" {
		skip = append(skip, cfg.HealthPath)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Actor(middleware.ActorConfig{
			Verifier:  cfg.Verifier,
			Required:  cfg.AuthRequired,
			SkipPaths: skip,
			Logger:    log,
		}),
	)
	return engine, nil
}
